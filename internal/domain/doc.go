// Package domain holds the learner's progression and commerce ledger (User:
// streak, learned words, coins, premium), the voucher catalog and purchase
// records, and the exam configuration and questions, together with their
// validation rules and sentinel errors. Subpackages streak and exam hold the
// pure login-streak rule and the timed assessment state machine.
package domain
