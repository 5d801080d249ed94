package model

import "time"

// OutboxMessage is a row in the outbox work queue (spec §3).
type OutboxMessage struct {
	ID            string
	Topic         string
	Payload       []byte
	CreatedAt     time.Time
	Status        OutboxStatus
	LockedUntil   *time.Time
	OwnerToken    *string
	DueTimeUtc    *time.Time
	RetryCount    int
	LastError     *string
	CorrelationID *string
	ProcessedAt   *time.Time
}

// InboxRecord is a row in the inbox dedup + work queue (spec §3).
type InboxRecord struct {
	MessageID   string
	Source      string
	Hash        *string
	FirstSeenAt time.Time
	LastSeenAt  time.Time
	ProcessedAt *time.Time
	DueTimeUtc  *time.Time
	Attempts    int
	Status      InboxStatus
	LockedUntil *time.Time
	OwnerToken  *string
	Topic       *string
	Payload     []byte
}

// IdempotencyRecord is a row in the idempotency store (spec §3, §4.3).
type IdempotencyRecord struct {
	Key           string
	Status        IdempotencyStatus
	LockedUntil   *time.Time
	LockedBy      *string
	FailureCount  int
	CreatedAt     time.Time
	UpdatedAt     time.Time
	CompletedAt   *time.Time
}

// DistributedLock is a row in the fenced lock table (spec §3, §4.4).
type DistributedLock struct {
	ResourceName string
	OwnerToken   *string
	LeaseUntil   *time.Time
	FencingToken int64
	ContextJSON  *string
}

// Lease is a row in the named-lease table (spec §3, §4.5).
type Lease struct {
	Name            string
	Owner           *string
	LeaseUntil      *time.Time
	LastGrantedUtc  *time.Time
	Version         int64
}

// Semaphore is the per-name counter row (spec §3, §4.6).
type Semaphore struct {
	Name               string
	Limit              int
	NextFencingCounter int64
}

// SemaphoreLease is a single admitted holder of a Semaphore slot.
type SemaphoreLease struct {
	Name            string
	Token           string
	Fencing         int64
	OwnerID         string
	LeaseUntil      time.Time
	CreatedAt       time.Time
	RenewedAt       *time.Time
	ClientRequestID *string
}

// Job is a recurring unit of scheduled work (spec §3, §4.7).
type Job struct {
	ID            string
	JobName       string
	CronSchedule  string
	Topic         string
	Payload       []byte
	IsEnabled     bool
	NextDueTime   *time.Time
	LastRunTime   *time.Time
}

// JobRun is a single scheduled invocation of a Job.
type JobRun struct {
	ID            string
	JobID         string
	ScheduledTime time.Time
	Status        JobRunStatus
	OwnerToken    *string
	LockedUntil   *time.Time
	RetryCount    int
}

// Timer is a one-shot due-time message (spec §3, §4.7).
type Timer struct {
	ID            string
	DueTime       time.Time
	Topic         string
	Payload       []byte
	CorrelationID *string
	Status        TimerStatus
}

// FanoutPolicy configures due-ness for a (fanoutTopic, workKey) pair
// (spec §3, §4.8).
type FanoutPolicy struct {
	FanoutTopic      string
	WorkKey          string
	DefaultEverySecs int
	JitterSeconds    int
}

// FanoutCursor tracks the last completion per (fanoutTopic, workKey, shardKey).
type FanoutCursor struct {
	FanoutTopic     string
	WorkKey         string
	ShardKey        string
	LastCompletedAt *time.Time
}

// FanoutSlice is the unit of work the coordinator emits into the outbox
// (spec §4.8, GLOSSARY "Slice").
type FanoutSlice struct {
	FanoutTopic   string
	ShardKey      string
	WorkKey       string
	WindowStart   *time.Time
	CorrelationID string
}
