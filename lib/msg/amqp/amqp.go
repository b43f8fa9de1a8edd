// Package amqp implements the message broker interface for AMQP compliant brokers (ie RabbitMQ)
package amqp

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/streadway/amqp"

	"github.com/perkhub/walletcore/lib/msg"
)

// Amqp implements a connection to a broker and a channel for reuse.
type Amqp struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

// New instantiates a new amqp broker.
func New(uri string) (msg.MsgBroker, error) {
	r := Amqp{}
	var err error

	if r.conn, err = amqp.Dial(uri); err != nil {
		return &r, err
	}
	r.ch = nil
	log.Printf("Connected to %s", uri)

	return &r, err
}

// Setup obtains an amqp channel and declares the message broker exchanges:
//
// - se ("session events"): the UI flows publish wallet session events to this exchange
//
// - ix ("invocation exchange"): the wallet service publishes terminal invocation results to this exchange
func (r *Amqp) Setup(x interface{}) error {
	// obtain a one-use channel
	channel, err := r.conn.Channel()
	if err != nil {
		return err
	}
	defer channel.Close()
	// declare exchanges
	if err = channel.ExchangeDeclare("se", "topic", true, false, false, false, nil); err != nil {
		return err
	}
	err = channel.ExchangeDeclare("ix", "topic", true, false, false, false, nil)
	return err
}

// Close terminages gracefully the connection to the AMQP message broker
func (r *Amqp) Close() error {
	if r.ch != nil {
		if err := r.ch.Close(); err != nil {
			log.Printf("Error closing amqp.Channel:%e", err)
		}
		r.ch = nil
		log.Printf("amqp.Channel closed!")
	}
	return r.conn.Close()
}

// SendInvocation publishes a terminal invocation result to the "ix" exchange
func (r *Amqp) SendInvocation(net string, res msg.InvocationResult) (err error) {
	// marshal to JSON
	var jsonDoc []byte
	if jsonDoc, err = json.Marshal(res); err != nil {
		return
	}
	// obtain channel if not present
	if r.ch == nil {
		if r.ch, err = r.conn.Channel(); err != nil {
			return
		}
	}
	// build body
	m := amqp.Publishing{
		Headers:     amqp.Table{"x-inv-name": net + "." + res.Hash},
		Body:        jsonDoc,
		ContentType: "application/json",
	}
	// publish
	if err = r.ch.Publish("ix", net+".inv."+res.Hash, false, false, m); err != nil {
		log.Printf("[%s] Error sending invocation result to message broker %e", net, err)
	}
	return
}

// GetSessionEvents consumes wallet session events from the "se" exchange pushing them to the returned channel. The Mutex pointer is provided to ensure the consumed message has been fully dealt with by the management function, so the message consumed is only acknowledged when the mutex is unlocked.
func (r *Amqp) GetSessionEvents(mut *sync.Mutex) (<-chan msg.SessionEvent, <-chan error, error) {
	var err error
	if r.ch == nil {
		if r.ch, err = r.conn.Channel(); err != nil {
			return nil, nil, err
		}
	}
	// declare queue
	var q amqp.Queue
	if q, err = r.ch.QueueDeclare("sewallet", true, false, false, false, nil); err != nil {
		return nil, nil, err
	}
	_ = q // otherwise compiler yields error, q not used!! XXX

	// bind queue to exchange
	if err = r.ch.QueueBind("sewallet", "session.#", "se", false, nil); err != nil {
		return nil, nil, err
	}
	// create channel for receiving events
	msgs, errCons := r.ch.Consume("sewallet", "wallet-session", false, false, false, false, nil)
	if errCons != nil {
		return nil, nil, errCons
	}
	// define channels to return
	eves := make(chan msg.SessionEvent)
	errors := make(chan error)
	// start routine to consume messages from broker
	go func() {
		for m := range msgs {
			var e *msg.SessionEvent = new(msg.SessionEvent)
			err := json.Unmarshal(m.Body, e)
			if err != nil {
				errors <- err
				continue
			}
			eves <- *e
			mut.Lock() // wait for wallet to finish processing the event
			m.Ack(false)
		}
	}()
	return eves, errors, nil
}
