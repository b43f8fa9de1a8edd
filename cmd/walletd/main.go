// Package main: walletd service.
//
// walletd keeps one wallet connection reconciled against its backend and its
// network, resolves the connected account's balances, and executes smart
// contract invocations end to end. Connection events arriving through the
// message broker pre-empt the reconciliation loop, and terminal invocation
// outcomes are published back for the activity ledger.
package main

import (
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/perkhub/walletcore/lib/backend"
	"github.com/perkhub/walletcore/lib/chain"
	"github.com/perkhub/walletcore/lib/config"
	"github.com/perkhub/walletcore/lib/ledger"
	"github.com/perkhub/walletcore/lib/msg"
	"github.com/perkhub/walletcore/lib/msg/amqp"
	"github.com/perkhub/walletcore/lib/session"
	"github.com/perkhub/walletcore/lib/store"
	"github.com/perkhub/walletcore/lib/store/db"
	"github.com/perkhub/walletcore/pipeline"
	"github.com/perkhub/walletcore/syncer"
	"github.com/perkhub/walletcore/syncer/resolver"
	"github.com/perkhub/walletcore/wallet"
)

func main() {
	// get command line flags
	confPath := flag.String("c", "", "flag to get configuration from json file")
	monitor := flag.Bool("m", false, "flag to monitor the server with Prometheus at http://localhost:9100")
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	// extract configuration
	conf, err := config.ExtractConfiguration(*confPath)
	if err != nil {
		panic(err)
	}

	log.Printf("Configuration:%+v", conf)

	// connect to database
	var kv store.KV

	if kv, err = db.New(conf.DbType, conf.DbConn); err != nil {
		panic(err)
	}

	log.Printf("Connected to %s store\n", conf.DbType)

	// load ledger and contract runtime clients for all networks
	lq := ledger.Init(conf.Networks)
	rt := chain.Init(conf.Networks)

	log.Printf("Network clients loaded")

	// load wallet backends
	bk, err := backend.Init(conf.Backends, conf.Networks, conf.DefaultNetwork, conf.Seed)
	if err != nil {
		panic(err)
	}

	log.Printf("Wallet backends loaded")

	// load Prometheus monitor
	if *monitor {
		go func() {
			log.Printf("Serving metrics API")

			h := http.NewServeMux()

			h.Handle("/metrics", promhttp.Handler())
			_ = http.ListenAndServe(":9100", h)
		}()
	}

	// load message broker
	var mb msg.MsgBroker

	switch conf.MbType {
	case "amqp":
		if mb, err = amqp.New(conf.MbConn); err != nil {
			time.Sleep(10 * time.Second) // wait 10s for AMQP to be ready and try to reconnect

			if mb, err = amqp.New(conf.MbConn); err != nil {
				panic(err)
			}
		}

		if err = mb.Setup(nil); err != nil {
			panic(err)
		}
	default:
		log.Printf("Unknown message broker type: %s\n", conf.MbType)
	}

	// wire the session, the reconciliation and balance loops and the invocation pipeline
	sess := session.New()
	res := resolver.New(lq, sess, time.Duration(conf.BalanceMs)*time.Millisecond)
	sync := syncer.New(kv, bk, lq, conf.Networks, conf.DefaultNetwork, sess, res,
		time.Duration(conf.ReconcileMs)*time.Millisecond)
	pipe := pipeline.New(lq, rt, bk, sess, conf.DefaultAmount)

	// create wallet service
	w := wallet.New(conf.DbType, kv, mb, bk, lq, rt, sess, sync, pipe, res)
	w.Start()

	// capture CTRL+C or docker's SIGTERM for gracious exit
	finish := make(chan int)

	go func() {
		sigchan := make(chan os.Signal, 10)
		signal.Notify(sigchan, os.Interrupt, syscall.SIGTERM)
		<-sigchan
		log.Printf("Program killed !")
		// do last actions and wait for all write operations to end
		w.StopWallet()
		close(finish)
	}()

	// manage session events published by the UI-level connect and disconnect flows
	if err := w.ManageEvents(); err != nil {
		log.Printf("Error setting up broker readers for events:%e", err)
	}

	// init RESTful API, wait for its return and log response
	log.Printf("Wallet: %s\n", w.Init(conf.RestfulEndpoint, conf.Port, conf.SSLPort, conf.SSLCert, conf.SSLKey))

	<-finish
}
