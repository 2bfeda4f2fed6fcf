package domain

import (
	"github.com/mockly-app/mockly-backend/internal/domain/jobs"
	"github.com/mockly-app/mockly-backend/internal/domain/ledger"
	"github.com/mockly-app/mockly-backend/internal/domain/progress"
	"github.com/mockly-app/mockly-backend/internal/domain/user"
)

// Identity
type User = user.User
type StarredQuestion = user.StarredQuestion

// Ledger
type Account = ledger.Account
type CreditTransaction = ledger.CreditTransaction
type TransactionType = ledger.TransactionType
type CreditPack = ledger.CreditPack

const (
	TxnSessionStart = ledger.TypeSessionStart
	TxnPurchase     = ledger.TypePurchase
	TxnRefund       = ledger.TypeRefund
	TxnSignupBonus  = ledger.TypeSignupBonus
)

// Progress
type ProgressRecord = progress.Record
type UserStats = progress.UserStats

// Jobs
type JobRun = jobs.JobRun

const (
	JobStatusQueued    = jobs.StatusQueued
	JobStatusRunning   = jobs.StatusRunning
	JobStatusSucceeded = jobs.StatusSucceeded
	JobStatusFailed    = jobs.StatusFailed

	JobKindStatsRecompute = jobs.KindStatsRecompute
	JobEntityUser         = jobs.EntityUser
)
