package wallet

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// write timeout must outlast the invocation confirmation wait
const timeout = 90

// Init sets up and starts the http/https server to service the RESTful API for the wallet service. If sslPort, sslCert
// and sslKey are informed, it will start an https (TLS) server on the specified endpoint.
func (w *Wallet) Init(endpoint, port, sslPort, sslCert, sslKey string) string {
	var err, errTLS error

	// API definition
	r := mux.NewRouter()
	r.HandleFunc("/", w.homeHandler)
	r.HandleFunc("/networks", w.networksHandler).Methods("GET")          // get all available networks
	r.HandleFunc("/backends", w.backendsHandler).Methods("GET")          // get all configured wallet backends
	r.HandleFunc("/session", w.sessionHandler).Methods("GET")            // get the current session snapshot
	r.HandleFunc("/connect/{backend}", w.connectHandler).Methods("POST") // connect a wallet backend
	r.HandleFunc("/connect", w.disconnectHandler).Methods("DELETE")      // disconnect
	r.HandleFunc("/network/{network}", w.switchHandler).Methods("PUT")   // switch the session network
	r.HandleFunc("/invoke", w.invokeHandler).Methods("POST")             // execute a contract invocation
	r.HandleFunc("/tx/{hash}", w.txHandler).Methods("GET")               // get transaction status
	http.Handle("/", r)

	// setup shutdown channel
	w.sc = make(chan struct{})

	// start http server
	if port != "" {
		w.s = &http.Server{
			Handler: r,
			Addr:    endpoint + ":" + port,
			// Good practice: enforce timeouts for servers you create!
			WriteTimeout: timeout * time.Second,
			ReadTimeout:  timeout * time.Second,
		}

		go func() {
			err = w.s.ListenAndServe()
		}()

		log.Printf("Listening to API http requests on %s:%s", endpoint, port)
	}
	// start https server
	if sslPort != "" && sslCert != "" && sslKey != "" {
		w.ss = &http.Server{
			Handler: r,
			Addr:    endpoint + ":" + sslPort,
			// Good practice: enforce timeouts for servers you create!
			WriteTimeout: timeout * time.Second,
			ReadTimeout:  timeout * time.Second,
		}

		go func() {
			errTLS = w.ss.ListenAndServeTLS(sslCert, sslKey)
		}()

		log.Printf("Listening to API https requests on %s:%s", endpoint, sslPort)
	}
	// wait for servers to be shutdown
	<-w.sc

	return fmt.Sprintf("shutdown http server:%e, https server:%e", err, errTLS)
}
