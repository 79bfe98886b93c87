// Package toast delivers feedback notifications for the seller console.
//
// Toasts are plain events. Anything that implements Emitter can carry
// them: the websocket hub broadcasts them to every connected console,
// the demo command prints them, and tests record them.
//
// The client listens for the "console:toast" event and renders the
// payload with whatever toast library it prefers:
//
//	socket.addEventListener("message", (e) => {
//	    const { event, payload } = JSON.parse(e.data);
//	    if (event === "console:toast") {
//	        showToast(payload.level, payload.message);
//	    }
//	});
//
// Server-side usage:
//
//	toast.Success(hub, "Leads saved")
//	toast.WithAction(hub, toast.TypeError, "Failed to update leads", "Retry", "retry:leads")
package toast
