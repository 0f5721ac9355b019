// Package service groups the application use cases. Each subpackage owns
// one area and depends only on domain types and the store interfaces:
//
//   - ledger: login streaks, learned words, coins, premium and the voucher
//     purchase transaction
//   - assessment: the scheduled exam bundle served to clients
//   - auth: access tokens and password verification
//
// Services receive their dependencies through constructors and run
// multi-statement writes through a store.Transactor so that they commit
// or roll back together.
package service
