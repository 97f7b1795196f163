package models

import "time"

// Record kinds stored in the record store. The kind is denormalized next to
// the derived key so reporting tools can list all records of one type.
const (
	KindGlobalState      = "global_state"
	KindUserProfile      = "user_profile"
	KindContainer        = "container"
	KindDepositRecord    = "deposit"
	KindRedemptionRecord = "redemption"
	KindCollectionRecord = "collection"
)

// Record is the storage envelope for every entity: a JSON body addressed by a
// derived key, with a version counter for optimistic concurrency.
type Record struct {
	Key       string    `db:"key"`
	Kind      string    `db:"kind"`
	Body      []byte    `db:"body"`
	Version   int64     `db:"version"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// GlobalState is the singleton configuration and totals record.
// Totals are monotonically non-decreasing; rate and minimum weight are
// mutable only by Authority.
type GlobalState struct {
	Authority         string `json:"authority"`
	EcocPerKG         uint64 `json:"ecoc_per_kg"`
	MinDepositWeight  uint64 `json:"min_deposit_weight"` // grams
	TotalPetCollected uint64 `json:"total_pet_collected"` // grams
	TotalDeposits     uint64 `json:"total_deposits"`
	TotalUsers        uint64 `json:"total_users"`
	TotalContainers   uint64 `json:"total_containers"`
}

// UserProfile holds per-user accrual and spend statistics.
// TotalDeposits and TotalRedemptions double as the per-user sequence numbers
// for deposit and redemption record keys.
type UserProfile struct {
	Owner            string `json:"owner"`
	Username         string `json:"username"`
	TotalDeposits    uint64 `json:"total_deposits"`
	TotalPetWeight   uint64 `json:"total_pet_weight"` // grams
	TotalEcocEarned  uint64 `json:"total_ecoc_earned"`
	TotalEcocSpent   uint64 `json:"total_ecoc_spent"`
	TotalRedemptions uint64 `json:"total_redemptions"`
	CreatedAt        int64  `json:"created_at"` // unix seconds
}

// Container is a registered physical deposit point.
// Invariant: 0 <= CurrentWeight <= CapacityKG*1000 at all times.
// TotalCollections is the per-container sequence for collection record keys.
type Container struct {
	ContainerID      string `json:"container_id"`
	Location         string `json:"location"`
	RegisteredBy     string `json:"registered_by"`
	CapacityKG       uint64 `json:"capacity_kg"`
	CurrentWeight    uint64 `json:"current_weight"` // grams
	TotalDeposits    uint64 `json:"total_deposits"`
	TotalCollections uint64 `json:"total_collections"`
	IsActive         bool   `json:"is_active"`
	CreatedAt        int64  `json:"created_at"`
	LastCollection   int64  `json:"last_collection"`
}

// DepositRecord is the immutable proof-of-recycling entry for one deposit.
type DepositRecord struct {
	User        string `json:"user"`
	ContainerID string `json:"container_id"`
	WeightGrams uint64 `json:"weight_grams"`
	EcocReward  uint64 `json:"ecoc_reward"`
	Timestamp   int64  `json:"timestamp"`
	Sequence    uint64 `json:"sequence"`
	AuditTag    string `json:"audit_tag"` // correlation id shared with the mint reference
}

// RedemptionRecord is the immutable entry for one token redemption (burn).
type RedemptionRecord struct {
	User      string `json:"user"`
	ProductID string `json:"product_id"`
	Amount    uint64 `json:"amount"`
	Timestamp int64  `json:"timestamp"`
	Sequence  uint64 `json:"sequence"`
	AuditTag  string `json:"audit_tag"`
}

// CollectionRecord certifies that a collector emptied a container.
type CollectionRecord struct {
	ContainerID     string `json:"container_id"`
	Collector       string `json:"collector"`
	WeightCollected uint64 `json:"weight_collected"` // grams
	Timestamp       int64  `json:"timestamp"`
	Sequence        uint64 `json:"sequence"`
	Verified        bool   `json:"verified"`
}
