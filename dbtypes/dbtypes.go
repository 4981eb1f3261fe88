package dbtypes

import "time"

// AccountHolding is the per-client aggregate over account.virtual_account_holder.
type AccountHolding struct {
	ClientID     int64  `db:"client_id"`
	AccountCount uint64 `db:"account_count"`
	AccountIds   string `db:"account_ids"`
}

// EntityRecord is a row of entity.entity targeted for deletion.
type EntityRecord struct {
	EntityId      int64      `db:"entity_id" mapstructure:"entity_id"`
	EntityType    string     `db:"entity_type" mapstructure:"entity_type"`
	EntitySubtype *string    `db:"entity_subtype" mapstructure:"entity_subtype"`
	CreatedAt     time.Time  `db:"created_at" mapstructure:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" mapstructure:"updated_at"`
	DeletedAt     *time.Time `db:"deleted_at" mapstructure:"deleted_at"`
}

// BackupRow is the audit bookkeeping of a backed up entity row.
type BackupRow struct {
	EntityId        int64  `db:"entity_id"`
	DeletionReason  string `db:"deletion_reason"`
	DeletionBatchId string `db:"deletion_batch_id"`
}

// BackupCounts holds the per-table row counts of one backup/delete step.
type BackupCounts struct {
	AccountRows uint64
	EntityRows  uint64
}
