// Package mocks provides centralized test doubles for the store and service
// interfaces.
//
// MemStore is an in-memory implementation of the user, voucher, purchase and
// exam stores together with a store.Transactor. Transactions run one at a
// time and roll back by restoring a snapshot, so the ledger's transactional
// behavior can be tested without a database. Writes made outside RunInTx
// while a transaction rolls back are lost with it. Each store view exposes
// function fields (for example DebitCoinsFn) to inject failures.
//
// The function-field mocks (MockJWTService, MockPasswordVerifier) follow one
// pattern: set the Fn field for the behavior under test, leave the rest nil
// to get the default behavior. Service mocks live next to the handlers that
// use them, since the services' own tests depend on this package.
//
//	users := mocks.NewMemStore().Users()
//	users.DebitCoinsFn = func(ctx context.Context, phone string, amount, observed int) (int, error) {
//	    return 0, store.ErrConflict
//	}
package mocks
