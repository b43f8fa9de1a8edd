// Package walletcore and its sub-packages implement the wallet backend services of the PerkHub rewards
// platform: the subsystem that keeps a user's external wallet session consistent with its out-of-process
// wallet backend and that executes smart-contract calls against the ledger's contract runtime.
/*
walletcore provides one microservice:

walletd (package wallet) implements a RESTful API for the platform front-ends to read the reconciled
wallet session, connect and disconnect wallet backends, switch networks and invoke smart-contract
functions. Internally it runs two periodic loops: the connection state synchronizer (package syncer),
which polls the active wallet backend and reconciles the in-memory session against it, and the balance
resolver (package syncer/resolver), which fetches and classifies account balances from the ledger query
service.

Architecture

The platform front-ends raise session events (connected, disconnected, networkChanged) through a message
broker; walletd consumes them and triggers an immediate reconciliation instead of waiting for the next
poll tick. When a contract invocation confirms, walletd publishes the resulting transaction hash back to
the broker so the platform's activity and points services can record it. The message broker is
implemented as a product agnostic layer (package lib/msg) and is configured via a JSON config file at
service startup.

The last-known session (backend id, address, network, network identifier) is persisted through a typed
key/value store layer (package lib/store) so the session survives restarts. The store is database product
agnostic with MongoDB, PostgreSQL and in-memory implementations.

Per configured network, walletd connects to two remote collaborators: the ledger query service (package
lib/ledger), which serves account balances and sequence numbers, and the smart contract runtime (package
lib/chain), which implements the simulate/prepare/submit/poll transaction protocol. Wallet backends
(package lib/backend) are out-of-process signers with varying capability sets; each variant exposes only
the operations it actually supports.

The service can be monitored via a Prometheus API by setting the flag "-m" at startup.
*/
package walletcore
