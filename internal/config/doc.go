// Package config provides configuration parsing for the seller console.
//
// The configuration is stored in sellerconsole.json. Every field is
// optional; missing fields take the defaults shown here.
//
// # Configuration File Structure
//
//	{
//	  "server": {
//	    "host": "localhost",
//	    "port": 3000,
//	    "shutdownTimeout": "10s",
//	    "allowedOrigins": ["http://localhost:5173"]
//	  },
//	  "backend": {
//	    "simulateFailure": false,
//	    "failureRate": 0.3,
//	    "minLatency": "1s",
//	    "maxLatency": "2s",
//	    "seed": 0
//	  },
//	  "confirmTimeout": "0s",
//	  "rollback": "settled",
//	  "language": "en",
//	  "metrics": {
//	    "enabled": true,
//	    "namespace": "sellerconsole"
//	  },
//	  "log": {
//	    "level": "info",
//	    "format": "text"
//	  }
//	}
//
// # Usage
//
//	cfg, err := config.LoadOrDefault(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Listening on", cfg.Address())
package config
