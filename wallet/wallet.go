// package wallet implements the walletd microservice.
//
// This microservice implements a RESTful API for clients to drive the wallet connection session and execute smart-contract invocations against the configured networks.
package wallet

import (
	"context"
	"net/http"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/perkhub/walletcore/lib/backend"
	"github.com/perkhub/walletcore/lib/chain"
	"github.com/perkhub/walletcore/lib/ledger"
	"github.com/perkhub/walletcore/lib/msg"
	"github.com/perkhub/walletcore/lib/session"
	"github.com/perkhub/walletcore/lib/store"
	"github.com/perkhub/walletcore/lib/store/db"
	"github.com/perkhub/walletcore/pipeline"
	"github.com/perkhub/walletcore/syncer"
	"github.com/perkhub/walletcore/syncer/resolver"
)

// Wallet contains the data necessary to deliver the service
type Wallet struct {
	dbtype string
	db     store.KV                   // store connection
	mb     msg.MsgBroker              // message broker
	bk     map[string]backend.Backend // wallet backends
	lq     map[string]ledger.Service  // ledger query clients
	rt     map[string]chain.Runtime   // contract runtime clients
	sess   *session.Session
	sync   *syncer.Syncer
	pipe   *pipeline.Pipeline
	res    *resolver.Resolver
	s      *http.Server  // http server
	ss     *http.Server  // https server
	sc     chan struct{} // http server channel used for graceful shutdowns
}

// New returns a pointer to a new Wallet service
func New(dbtype string, kv store.KV, mb msg.MsgBroker, bk map[string]backend.Backend,
	lq map[string]ledger.Service, rt map[string]chain.Runtime, sess *session.Session,
	sync *syncer.Syncer, pipe *pipeline.Pipeline, res *resolver.Resolver) *Wallet {
	return &Wallet{
		dbtype: dbtype,
		db:     kv,
		mb:     mb,
		bk:     bk,
		lq:     lq,
		rt:     rt,
		sess:   sess,
		sync:   sync,
		pipe:   pipe,
		res:    res,
	}
}

// Start restores the persisted session and launches the reconciliation and balance loops.
func (w *Wallet) Start() {
	w.sync.RestoreFromStorage()
	w.sync.Run()
	w.sync.Notify() // resolve immediately instead of waiting for the first tick
	w.res.Start()
}

// StopWallet shuts down the http servers implementing the RESTful API and closes gracefully the loops and the connections to message broker, backends, networks and database.
func (w *Wallet) StopWallet() {
	var err error
	// shutdown http server
	if w.s != nil {
		if err = w.s.Shutdown(context.Background()); err != nil {
			log.Printf("Error in http server shutdown:%e", err)
		}
	}
	if w.ss != nil {
		if err = w.ss.Shutdown(context.Background()); err != nil {
			log.Printf("Error in https server shutdown:%e", err)
		}
	}
	close(w.sc) // close server channels to indicate shutdowns have finished
	// stop the loops
	w.sync.Stop()
	w.res.Stop()
	// close message broker
	if w.mb != nil {
		if err = w.mb.Close(); err != nil {
			log.Printf("Error closing message broker:%e", err)
		}
	}
	// close clients
	backend.End(w.bk)
	ledger.End(w.lq)
	chain.End(w.rt)
	// close database
	if w.db != nil {
		err = db.Close(w.dbtype, w.db)
		log.Printf("Disconnecting %v store, err:%e\n", w.dbtype, err)
	}
}

// ManageEvents starts go routines to consume the session events published by the UI-level connect and disconnect flows. Each event pre-empts the next reconciliation tick.
func (w *Wallet) ManageEvents() error {
	if w.mb == nil {
		return nil
	}
	var mut *sync.Mutex = new(sync.Mutex)
	mut.Lock()
	eveCh, errCh, err := w.mb.GetSessionEvents(mut)
	if err != nil {
		return err
	}

	// launch event channel reader
	go func() {
		log.Printf("Start listening to session event channel")
		for eve := range eveCh {
			log.Printf("Received session event %+v", eve)
			switch eve.Kind {
			case msg.CONNECTED:
				if eve.Backend != "" {
					if err := w.db.Set(store.KeyBackend, eve.Backend); err != nil {
						log.Printf("Error persisting backend from event: %v", err)
					}
				}
				if eve.Address != "" {
					if err := w.db.Set(store.KeyAddress, eve.Address); err != nil {
						log.Printf("Error persisting address from event: %v", err)
					}
				}
				w.sync.Notify()
			case msg.DISCONNECTED:
				if err := w.sync.Disconnect(); err != nil {
					log.Printf("Error disconnecting from event: %v", err)
				}
			case msg.NETWORKCHANGED:
				if eve.Network != "" {
					if err := store.SaveNetwork(w.db, eve.Network, eve.NetworkID); err != nil {
						log.Printf("Error persisting network from event: %v", err)
					}
				}
				w.sync.Notify()
			}
			mut.Unlock()
		}
		log.Printf("Stop listening to session event channel")
	}()

	// launch error channel reader
	go func() {
		log.Printf("Start listening to err channel")
		for e := range errCh {
			log.Printf("Received error %+v", e)
		}
		log.Printf("Stop listening to err channel")
	}()
	return nil
}
