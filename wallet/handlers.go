package wallet

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/perkhub/walletcore/lib/backend"
	"github.com/perkhub/walletcore/lib/chain"
	"github.com/perkhub/walletcore/lib/msg"
	"github.com/perkhub/walletcore/pipeline"
	"github.com/perkhub/walletcore/syncer"
)

// Errors returned to client requests.
var (
	ErrBadrequest = errors.New("bad request")
	ErrNoBackend  = errors.New("undefined backend - missing in uri")
	ErrNoHash     = errors.New("a transaction hash is required")
	ErrNoNet      = errors.New("network not available")
)

// Response defines the data structure returned to the client making the http request.
type Response struct {
	Body  string `json:"body"`
	Error string `json:"error,omitempty"`
}

// homeHandler just replies a welcome message to the client.
func (w *Wallet) homeHandler(rw http.ResponseWriter, r *http.Request) {
	var res Response
	// log request
	log.Printf("httpreq from %v %s\n", r.RemoteAddr, r.RequestURI)
	// just reply a welcome message
	res.Body = "Hello, this is your wallet session and contract invocation service!"
	// reply
	rw.Header().Set("Content-Type", "application/json;charset=utf8")
	_ = json.NewEncoder(rw).Encode(res)
}

// networksHandler replies the networks available to the wallet.
func (w *Wallet) networksHandler(rw http.ResponseWriter, r *http.Request) {
	var err error

	var res Response

	pl := make([]string, 0, len(w.lq))

	defer func() {
		// reply to requester accordingly
		if err != nil {
			res.Error = fmt.Sprintf("%s", err)

			rw.WriteHeader(http.StatusBadRequest)
		} else {
			rw.WriteHeader(http.StatusOK)
			tmp, _ := json.Marshal(pl)
			res.Body = string(tmp)
		}
		// log request and networks
		log.Printf("httpreq from %v %s res:%+v err:%e\n", r.RemoteAddr, r.RequestURI, pl, err)
		// reply
		rw.Header().Set("Content-Type", "application/json;charset=utf8")
		_ = json.NewEncoder(rw).Encode(&res)
	}()

	for net := range w.lq {
		pl = append(pl, net)
	}
}

// backendInfo describes one configured wallet backend to clients.
type backendInfo struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
}

// backendsHandler replies the wallet backends the service can connect to.
func (w *Wallet) backendsHandler(rw http.ResponseWriter, r *http.Request) {
	var res Response

	pl := make([]backendInfo, 0, len(w.bk))
	for _, b := range w.bk {
		pl = append(pl, backendInfo{ID: b.ID(), Kind: b.Kind()})
	}

	rw.WriteHeader(http.StatusOK)
	tmp, _ := json.Marshal(pl)
	res.Body = string(tmp)
	// log request and backends
	log.Printf("httpreq from %v %s res:%+v\n", r.RemoteAddr, r.RequestURI, pl)
	// reply
	rw.Header().Set("Content-Type", "application/json;charset=utf8")
	_ = json.NewEncoder(rw).Encode(&res)
}

// sessionHandler replies a read-only snapshot of the wallet session.
func (w *Wallet) sessionHandler(rw http.ResponseWriter, r *http.Request) {
	var res Response

	snap := w.sess.Snapshot()

	rw.WriteHeader(http.StatusOK)
	tmp, _ := json.Marshal(snap)
	res.Body = string(tmp)
	// log request
	log.Printf("httpreq from %v %s\n", r.RemoteAddr, r.RequestURI)
	// reply
	rw.Header().Set("Content-Type", "application/json;charset=utf8")
	_ = json.NewEncoder(rw).Encode(&res)
}

// connectHandler connects the given wallet backend and resolves the session immediately.
func (w *Wallet) connectHandler(rw http.ResponseWriter, r *http.Request) {
	var err error

	var res Response

	defer func() {
		// reply to requester accordingly
		if err != nil {
			res.Error = fmt.Sprintf("%s", err)

			if errors.Is(err, syncer.ErrUnknownBackend) {
				rw.WriteHeader(http.StatusNotFound)
			} else {
				rw.WriteHeader(http.StatusBadRequest)
			}
		} else {
			rw.WriteHeader(http.StatusOK)
			tmp, _ := json.Marshal(w.sess.Snapshot())
			res.Body = string(tmp)
		}
		// log request
		log.Printf("httpreq from %v %s err:%e\n", r.RemoteAddr, r.RequestURI, err)
		// reply
		rw.Header().Set("Content-Type", "application/json;charset=utf8")
		_ = json.NewEncoder(rw).Encode(&res)
	}()

	v := mux.Vars(r)
	bid, ok := v["backend"]
	if !ok || bid == "" {
		err = ErrNoBackend

		return
	}

	err = w.sync.Connect(r.Context(), bid)
}

// disconnectHandler clears the session and the persisted connection.
func (w *Wallet) disconnectHandler(rw http.ResponseWriter, r *http.Request) {
	var err error

	var res Response

	defer func() {
		// reply to requester accordingly
		if err != nil {
			res.Error = fmt.Sprintf("%s", err)

			rw.WriteHeader(http.StatusBadRequest)
		} else {
			rw.WriteHeader(http.StatusOK)
			res.Body = "disconnected"
		}
		// log request
		log.Printf("httpreq from %v %s err:%e\n", r.RemoteAddr, r.RequestURI, err)
		// reply
		rw.Header().Set("Content-Type", "application/json;charset=utf8")
		_ = json.NewEncoder(rw).Encode(&res)
	}()

	err = w.sync.Disconnect()
}

// switchHandler moves the session to the requested network. Backends without switch support reply method not allowed so the client can tell the user to switch inside their wallet.
func (w *Wallet) switchHandler(rw http.ResponseWriter, r *http.Request) {
	var err error

	var res Response

	defer func() {
		// reply to requester accordingly
		if err != nil {
			res.Error = fmt.Sprintf("%s", err)

			switch {
			case errors.Is(err, backend.ErrUnsupported):
				rw.WriteHeader(http.StatusMethodNotAllowed)
			case errors.Is(err, syncer.ErrUnknownNetwork):
				rw.WriteHeader(http.StatusNotFound)
			default:
				rw.WriteHeader(http.StatusBadRequest)
			}
		} else {
			rw.WriteHeader(http.StatusOK)
			tmp, _ := json.Marshal(w.sess.Snapshot())
			res.Body = string(tmp)
		}
		// log request
		log.Printf("httpreq from %v %s err:%e\n", r.RemoteAddr, r.RequestURI, err)
		// reply
		rw.Header().Set("Content-Type", "application/json;charset=utf8")
		_ = json.NewEncoder(rw).Encode(&res)
	}()

	v := mux.Vars(r)
	target, ok := v["network"]
	if !ok || target == "" {
		err = ErrBadrequest

		return
	}

	err = w.sync.SwitchNetwork(r.Context(), target)
}

// invokeHandler executes a contract invocation end to end and replies the confirmed transaction hash. The terminal outcome is also published to the broker for the activity ledger.
func (w *Wallet) invokeHandler(rw http.ResponseWriter, r *http.Request) {
	var err error

	var res Response

	var inv pipeline.Invocation

	var result pipeline.Result

	defer func() {
		// reply to requester accordingly
		if err != nil {
			res.Error = fmt.Sprintf("%s", err)

			switch {
			case errors.Is(err, pipeline.ErrNotConnected),
				errors.Is(err, pipeline.ErrSignerUnfunded),
				errors.Is(err, pipeline.ErrNoNetworkID),
				errors.Is(err, chain.ErrBadArg),
				errors.Is(err, ErrBadrequest):
				rw.WriteHeader(http.StatusBadRequest)
			default:
				rw.WriteHeader(http.StatusBadGateway)
			}
		} else {
			rw.WriteHeader(http.StatusOK)
			tmp, _ := json.Marshal(result)
			res.Body = string(tmp)
		}
		// log request and tx hash
		log.Printf("httpreq from %v %s hash:%s err:%e\n", r.RemoteAddr, r.RequestURI, result.Hash, err)
		// reply
		rw.Header().Set("Content-Type", "application/json;charset=utf8")
		_ = json.NewEncoder(rw).Encode(&res)
	}()

	// get request
	if err = json.NewDecoder(r.Body).Decode(&inv); err != nil {
		log.Printf("Error decoding invocation request %+v\n", r.Body)
		err = ErrBadrequest

		return
	}
	if inv.Contract == "" || len(inv.Functions) == 0 {
		err = ErrBadrequest

		return
	}

	result, err = w.pipe.Invoke(r.Context(), inv)
	w.publishInvocation(inv, result, err)
}

// publishInvocation sends the terminal invocation outcome to the broker, for the activity ledger to record.
func (w *Wallet) publishInvocation(inv pipeline.Invocation, result pipeline.Result, invErr error) {
	if w.mb == nil {
		return
	}

	out := msg.InvocationResult{
		Net:      result.Network,
		Contract: inv.Contract,
		Function: result.Function,
		Signer:   result.Signer,
		Hash:     result.Hash,
		Status:   "SUCCESS",
	}
	if invErr != nil {
		net, _ := w.sess.Network()
		out.Net = net
		out.Function = inv.Functions[0]
		out.Signer = w.sess.Address()
		out.Status = "FAILED"
		out.Diag = invErr.Error()
	}

	if err := w.mb.SendInvocation(out.Net, out); err != nil {
		log.Printf("Error publishing invocation result: %v\n", err)
	}
}

// txHandler replies the status of a submitted transaction on the given network.
func (w *Wallet) txHandler(rw http.ResponseWriter, r *http.Request) {
	var err error

	var res Response

	var st chain.TxStatus

	defer func() {
		// reply to requester accordingly
		if err != nil {
			res.Error = fmt.Sprintf("%s", err)

			if errors.Is(err, ErrNoNet) || errors.Is(err, ErrNoHash) {
				rw.WriteHeader(http.StatusBadRequest)
			} else {
				rw.WriteHeader(http.StatusBadGateway)
			}
		} else if st.Status == chain.StatusNotFound {
			rw.WriteHeader(http.StatusNotFound)
		} else {
			rw.WriteHeader(http.StatusOK)
			tmp, _ := json.Marshal(st)
			res.Body = string(tmp)
		}
		// log request and tx status
		log.Printf("httpreq from %v %s status:%s err:%e\n", r.RemoteAddr, r.RequestURI, st.Status, err)
		// reply
		rw.Header().Set("Content-Type", "application/json;charset=utf8")
		_ = json.NewEncoder(rw).Encode(&res)
	}()

	// parse request
	if err = r.ParseForm(); err != nil {
		log.Print("Error parsing request URL")

		return
	}

	v := mux.Vars(r)
	hash, ok := v["hash"]
	if !ok || hash == "" {
		err = ErrNoHash

		return
	}

	// the network defaults to the session's one, a ?net= query overrides it
	net, _ := w.sess.Network()
	if tmp, okN := r.Form["net"]; okN {
		net = tmp[0]
	}
	rt, okR := w.rt[net]
	if !okR {
		err = ErrNoNet

		return
	}

	st, err = rt.GetTransaction(r.Context(), hash)
}
