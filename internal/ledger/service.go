package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"ecobottle-ledger-go/internal/keys"
	"ecobottle-ledger-go/internal/models"
	"ecobottle-ledger-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	maxUsernameLen    = 32
	maxContainerIDLen = 32
	maxLocationLen    = 64
	maxProductIDLen   = 32
)

// Service is the recycling-ledger engine. Every mutating operation is one
// synchronous transition: read the fixed set of records, validate, compute,
// and commit all mutations together or none at all. Token mint/burn calls
// run as the last step before the storage commit, so a ledger failure leaves
// no local state behind.
type Service struct {
	records store.RecordStore
	tokens  store.TokenLedger
	clock   Clock
}

func NewService(records store.RecordStore, tokens store.TokenLedger) *Service {
	return &Service{records: records, tokens: tokens, clock: SystemClock{}}
}

// ---------- operation parameters ----------

type InitializeParams struct {
	Authority        string
	EcocPerKG        uint64
	MinDepositWeight uint64 // grams
}

type RegisterUserParams struct {
	Owner    string
	Username string
}

type RegisterContainerParams struct {
	Authority   string // verified caller identity
	ContainerID string
	Location    string
	CapacityKG  uint64
}

type DepositParams struct {
	User        string
	ContainerID string
	WeightGrams uint64
}

type RedeemParams struct {
	User      string
	ProductID string
	Amount    uint64
}

type CollectParams struct {
	ContainerID string
	Collector   string
}

type UpdateConfigParams struct {
	Authority           string
	NewEcocPerKG        *uint64
	NewMinDepositWeight *uint64
}

type ToggleContainerParams struct {
	Authority   string
	ContainerID string
}

// ---------- administration ----------

// Initialize creates the singleton global state. It fails on re-init rather
// than overwriting.
func (s *Service) Initialize(ctx context.Context, params InitializeParams) error {
	err := s.records.RunInTx(ctx, func(tx store.RecordTx) error {
		global := models.GlobalState{
			Authority:        params.Authority,
			EcocPerKG:        params.EcocPerKG,
			MinDepositWeight: params.MinDepositWeight,
		}
		if err := createJSON(ctx, tx, keys.GlobalState(), models.KindGlobalState, global); err != nil {
			if errors.Is(err, store.ErrRecordExists) {
				return ErrAlreadyInitialized
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	zap.L().Info("Ledger initialized",
		zap.String("authority", params.Authority),
		zap.Uint64("ecoc_per_kg", params.EcocPerKG),
		zap.Uint64("min_deposit_weight", params.MinDepositWeight))
	return nil
}

// RegisterUser creates a user profile and bumps the global user count.
func (s *Service) RegisterUser(ctx context.Context, params RegisterUserParams) (*models.UserProfile, error) {
	if len(params.Username) > maxUsernameLen {
		return nil, ErrUsernameTooLong
	}

	var profile models.UserProfile
	err := s.records.RunInTx(ctx, func(tx store.RecordTx) error {
		global, version, err := s.globalState(ctx, tx)
		if err != nil {
			return err
		}

		profile = models.UserProfile{
			Owner:     params.Owner,
			Username:  params.Username,
			CreatedAt: s.clock.Now().Unix(),
		}
		if err := createJSON(ctx, tx, keys.UserProfile(params.Owner), models.KindUserProfile, profile); err != nil {
			if errors.Is(err, store.ErrRecordExists) {
				return fmt.Errorf("%w: %s", ErrUserExists, params.Owner)
			}
			return err
		}

		if global.TotalUsers, err = checkedAdd(global.TotalUsers, 1); err != nil {
			return err
		}
		return updateJSON(ctx, tx, keys.GlobalState(), global, version)
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("User registered",
		zap.String("owner", params.Owner),
		zap.String("username", params.Username))
	return &profile, nil
}

// RegisterContainer creates a container record. Only the configured authority
// may register containers.
func (s *Service) RegisterContainer(ctx context.Context, params RegisterContainerParams) (*models.Container, error) {
	if len(params.ContainerID) > maxContainerIDLen {
		return nil, ErrContainerIDTooLong
	}
	if len(params.Location) > maxLocationLen {
		return nil, ErrLocationTooLong
	}

	var container models.Container
	err := s.records.RunInTx(ctx, func(tx store.RecordTx) error {
		global, version, err := s.globalState(ctx, tx)
		if err != nil {
			return err
		}
		if params.Authority != global.Authority {
			return fmt.Errorf("%w: %s", ErrUnauthorized, params.Authority)
		}

		container = models.Container{
			ContainerID:  params.ContainerID,
			Location:     params.Location,
			RegisteredBy: params.Authority,
			CapacityKG:   params.CapacityKG,
			IsActive:     true,
			CreatedAt:    s.clock.Now().Unix(),
		}
		if err := createJSON(ctx, tx, keys.Container(params.ContainerID), models.KindContainer, container); err != nil {
			if errors.Is(err, store.ErrRecordExists) {
				return fmt.Errorf("%w: %s", ErrContainerExists, params.ContainerID)
			}
			return err
		}

		if global.TotalContainers, err = checkedAdd(global.TotalContainers, 1); err != nil {
			return err
		}
		return updateJSON(ctx, tx, keys.GlobalState(), global, version)
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Container registered",
		zap.String("container_id", params.ContainerID),
		zap.String("location", params.Location),
		zap.Uint64("capacity_kg", params.CapacityKG))
	return &container, nil
}

// UpdateConfig overwrites the reward rate and/or minimum deposit weight.
// Absent fields are left untouched.
func (s *Service) UpdateConfig(ctx context.Context, params UpdateConfigParams) error {
	err := s.records.RunInTx(ctx, func(tx store.RecordTx) error {
		global, version, err := s.globalState(ctx, tx)
		if err != nil {
			return err
		}
		if params.Authority != global.Authority {
			return fmt.Errorf("%w: %s", ErrUnauthorized, params.Authority)
		}

		if params.NewEcocPerKG != nil {
			global.EcocPerKG = *params.NewEcocPerKG
		}
		if params.NewMinDepositWeight != nil {
			global.MinDepositWeight = *params.NewMinDepositWeight
		}
		return updateJSON(ctx, tx, keys.GlobalState(), global, version)
	})
	if err != nil {
		return err
	}

	zap.L().Info("Config updated",
		zap.Any("new_ecoc_per_kg", params.NewEcocPerKG),
		zap.Any("new_min_deposit_weight", params.NewMinDepositWeight))
	return nil
}

// ToggleContainerStatus flips a container's active flag.
func (s *Service) ToggleContainerStatus(ctx context.Context, params ToggleContainerParams) (*models.Container, error) {
	var container *models.Container
	err := s.records.RunInTx(ctx, func(tx store.RecordTx) error {
		global, _, err := s.globalState(ctx, tx)
		if err != nil {
			return err
		}
		if params.Authority != global.Authority {
			return fmt.Errorf("%w: %s", ErrUnauthorized, params.Authority)
		}

		var version int64
		container, version, err = s.container(ctx, tx, params.ContainerID)
		if err != nil {
			return err
		}
		container.IsActive = !container.IsActive
		return updateJSON(ctx, tx, keys.Container(params.ContainerID), container, version)
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Container status toggled",
		zap.String("container_id", params.ContainerID),
		zap.Bool("is_active", container.IsActive))
	return container, nil
}

// ---------- deposit engine ----------

// ProcessDeposit validates and executes one deposit: it appends the deposit
// record, updates the container, user, and global counters, and mints the
// reward. The mint is the commit point: it runs after every local mutation is
// staged, and a mint failure rolls all of them back.
func (s *Service) ProcessDeposit(ctx context.Context, params DepositParams) (*models.DepositRecord, error) {
	var record models.DepositRecord
	err := s.records.RunInTx(ctx, func(tx store.RecordTx) error {
		global, globalVersion, err := s.globalState(ctx, tx)
		if err != nil {
			return err
		}
		container, containerVersion, err := s.container(ctx, tx, params.ContainerID)
		if err != nil {
			return err
		}
		profile, profileVersion, err := s.userProfile(ctx, tx, params.User)
		if err != nil {
			return err
		}

		// Preconditions, first failure wins.
		if !container.IsActive {
			return fmt.Errorf("%w: %s", ErrContainerInactive, params.ContainerID)
		}
		if params.WeightGrams < global.MinDepositWeight {
			return fmt.Errorf("%w: %dg < %dg", ErrWeightTooLow, params.WeightGrams, global.MinDepositWeight)
		}
		capacity, err := capacityGrams(container.CapacityKG)
		if err != nil {
			return err
		}
		newWeight, err := checkedAdd(container.CurrentWeight, params.WeightGrams)
		if err != nil {
			return err
		}
		if newWeight > capacity {
			return fmt.Errorf("%w: %s at %dg of %dg", ErrContainerFull, params.ContainerID, container.CurrentWeight, capacity)
		}

		reward, err := rewardFor(params.WeightGrams, global.EcocPerKG)
		if err != nil {
			return err
		}

		// The per-user deposit count read here is the sequence component of
		// the record key; it is incremented below in the same transaction.
		seq := profile.TotalDeposits
		record = models.DepositRecord{
			User:        params.User,
			ContainerID: params.ContainerID,
			WeightGrams: params.WeightGrams,
			EcocReward:  reward,
			Timestamp:   s.clock.Now().Unix(),
			Sequence:    seq,
			AuditTag:    uuid.New().String(),
		}
		if err := createJSON(ctx, tx, keys.Deposit(params.User, seq), models.KindDepositRecord, record); err != nil {
			return err
		}

		container.CurrentWeight = newWeight
		if container.TotalDeposits, err = checkedAdd(container.TotalDeposits, 1); err != nil {
			return err
		}
		if err := updateJSON(ctx, tx, keys.Container(params.ContainerID), container, containerVersion); err != nil {
			return err
		}

		if profile.TotalDeposits, err = checkedAdd(profile.TotalDeposits, 1); err != nil {
			return err
		}
		if profile.TotalPetWeight, err = checkedAdd(profile.TotalPetWeight, params.WeightGrams); err != nil {
			return err
		}
		if profile.TotalEcocEarned, err = checkedAdd(profile.TotalEcocEarned, reward); err != nil {
			return err
		}
		if err := updateJSON(ctx, tx, keys.UserProfile(params.User), profile, profileVersion); err != nil {
			return err
		}

		if global.TotalPetCollected, err = checkedAdd(global.TotalPetCollected, params.WeightGrams); err != nil {
			return err
		}
		if global.TotalDeposits, err = checkedAdd(global.TotalDeposits, 1); err != nil {
			return err
		}
		if err := updateJSON(ctx, tx, keys.GlobalState(), global, globalVersion); err != nil {
			return err
		}

		// Mint last: if the token ledger rejects the reward, the rollback
		// discards every staged mutation above.
		if err := s.tokens.Mint(ctx, params.User, reward, record.AuditTag); err != nil {
			return fmt.Errorf("reward mint failed: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Deposit processed",
		zap.String("user_id", params.User),
		zap.String("container_id", params.ContainerID),
		zap.Uint64("weight_grams", params.WeightGrams),
		zap.Uint64("ecoc_reward", record.EcocReward),
		zap.String("audit_tag", record.AuditTag))
	return &record, nil
}

// ---------- redemption engine ----------

// RedeemTokens burns amount from the user's live token balance and records
// the redemption. Redeemed tokens leave circulation permanently. The product
// id is not checked against any catalog.
func (s *Service) RedeemTokens(ctx context.Context, params RedeemParams) (*models.RedemptionRecord, error) {
	if len(params.ProductID) > maxProductIDLen {
		return nil, ErrProductIDTooLong
	}

	var record models.RedemptionRecord
	err := s.records.RunInTx(ctx, func(tx store.RecordTx) error {
		profile, profileVersion, err := s.userProfile(ctx, tx, params.User)
		if err != nil {
			return err
		}

		// The precondition reads the live ledger balance, not the accrual
		// statistics on the profile.
		balance, err := s.tokens.BalanceOf(ctx, params.User)
		if err != nil {
			return fmt.Errorf("failed to read token balance: %w", err)
		}
		if balance < params.Amount {
			return fmt.Errorf("%w: balance %d, requested %d", ErrInsufficientTokens, balance, params.Amount)
		}

		seq := profile.TotalRedemptions
		record = models.RedemptionRecord{
			User:      params.User,
			ProductID: params.ProductID,
			Amount:    params.Amount,
			Timestamp: s.clock.Now().Unix(),
			Sequence:  seq,
			AuditTag:  uuid.New().String(),
		}
		if err := createJSON(ctx, tx, keys.Redemption(params.User, seq), models.KindRedemptionRecord, record); err != nil {
			return err
		}

		if profile.TotalEcocSpent, err = checkedAdd(profile.TotalEcocSpent, params.Amount); err != nil {
			return err
		}
		if profile.TotalRedemptions, err = checkedAdd(profile.TotalRedemptions, 1); err != nil {
			return err
		}
		if err := updateJSON(ctx, tx, keys.UserProfile(params.User), profile, profileVersion); err != nil {
			return err
		}

		// Burn last, authorized by the user; a burn failure rolls back the
		// redemption record and spend statistics.
		if err := s.tokens.Burn(ctx, params.User, params.Amount, record.AuditTag); err != nil {
			if errors.Is(err, store.ErrInsufficientBalance) {
				return fmt.Errorf("%w: %s", ErrInsufficientTokens, params.User)
			}
			return fmt.Errorf("token burn failed: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Tokens redeemed",
		zap.String("user_id", params.User),
		zap.String("product_id", params.ProductID),
		zap.Uint64("amount", params.Amount),
		zap.String("audit_tag", record.AuditTag))
	return &record, nil
}

// ---------- collection engine ----------

// CollectContainer closes out a container's accumulated weight into a
// certified collection record and empties the container. The container's
// lifetime deposit count is not reset.
func (s *Service) CollectContainer(ctx context.Context, params CollectParams) (*models.CollectionRecord, error) {
	var record models.CollectionRecord
	err := s.records.RunInTx(ctx, func(tx store.RecordTx) error {
		container, containerVersion, err := s.container(ctx, tx, params.ContainerID)
		if err != nil {
			return err
		}

		if !container.IsActive {
			return fmt.Errorf("%w: %s", ErrContainerInactive, params.ContainerID)
		}
		if container.CurrentWeight == 0 {
			return fmt.Errorf("%w: %s", ErrContainerEmpty, params.ContainerID)
		}

		now := s.clock.Now().Unix()
		seq := container.TotalCollections
		record = models.CollectionRecord{
			ContainerID:     params.ContainerID,
			Collector:       params.Collector,
			WeightCollected: container.CurrentWeight,
			Timestamp:       now,
			Sequence:        seq,
			Verified:        true,
		}
		if err := createJSON(ctx, tx, keys.Collection(params.ContainerID, seq), models.KindCollectionRecord, record); err != nil {
			return err
		}

		container.CurrentWeight = 0
		container.LastCollection = now
		if container.TotalCollections, err = checkedAdd(container.TotalCollections, 1); err != nil {
			return err
		}
		return updateJSON(ctx, tx, keys.Container(params.ContainerID), container, containerVersion)
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Container collected",
		zap.String("container_id", params.ContainerID),
		zap.String("collector", params.Collector),
		zap.Uint64("weight_collected", record.WeightCollected))
	return &record, nil
}

// ---------- reads ----------

func (s *Service) GetGlobalState(ctx context.Context) (*models.GlobalState, error) {
	rec, err := s.records.Get(ctx, keys.GlobalState())
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, ErrNotInitialized
		}
		return nil, err
	}
	var global models.GlobalState
	if err := json.Unmarshal(rec.Body, &global); err != nil {
		return nil, fmt.Errorf("corrupt global state record: %w", err)
	}
	return &global, nil
}

func (s *Service) GetUserProfile(ctx context.Context, owner string) (*models.UserProfile, error) {
	rec, err := s.records.Get(ctx, keys.UserProfile(owner))
	if err != nil {
		return nil, err
	}
	var profile models.UserProfile
	if err := json.Unmarshal(rec.Body, &profile); err != nil {
		return nil, fmt.Errorf("corrupt user profile record: %w", err)
	}
	return &profile, nil
}

func (s *Service) GetContainer(ctx context.Context, containerID string) (*models.Container, error) {
	rec, err := s.records.Get(ctx, keys.Container(containerID))
	if err != nil {
		return nil, err
	}
	var container models.Container
	if err := json.Unmarshal(rec.Body, &container); err != nil {
		return nil, fmt.Errorf("corrupt container record: %w", err)
	}
	return &container, nil
}

func (s *Service) ListUserProfiles(ctx context.Context) ([]models.UserProfile, error) {
	records, err := s.records.List(ctx, models.KindUserProfile)
	if err != nil {
		return nil, err
	}
	profiles := make([]models.UserProfile, 0, len(records))
	for _, rec := range records {
		var profile models.UserProfile
		if err := json.Unmarshal(rec.Body, &profile); err != nil {
			return nil, fmt.Errorf("corrupt user profile record %s: %w", rec.Key, err)
		}
		profiles = append(profiles, profile)
	}
	return profiles, nil
}

func (s *Service) ListContainers(ctx context.Context) ([]models.Container, error) {
	records, err := s.records.List(ctx, models.KindContainer)
	if err != nil {
		return nil, err
	}
	containers := make([]models.Container, 0, len(records))
	for _, rec := range records {
		var container models.Container
		if err := json.Unmarshal(rec.Body, &container); err != nil {
			return nil, fmt.Errorf("corrupt container record %s: %w", rec.Key, err)
		}
		containers = append(containers, container)
	}
	return containers, nil
}

// ---------- record helpers ----------

func (s *Service) globalState(ctx context.Context, tx store.RecordTx) (*models.GlobalState, int64, error) {
	rec, err := tx.Get(ctx, keys.GlobalState())
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, 0, ErrNotInitialized
		}
		return nil, 0, err
	}
	var global models.GlobalState
	if err := json.Unmarshal(rec.Body, &global); err != nil {
		return nil, 0, fmt.Errorf("corrupt global state record: %w", err)
	}
	return &global, rec.Version, nil
}

func (s *Service) userProfile(ctx context.Context, tx store.RecordTx, owner string) (*models.UserProfile, int64, error) {
	rec, err := tx.Get(ctx, keys.UserProfile(owner))
	if err != nil {
		return nil, 0, err
	}
	var profile models.UserProfile
	if err := json.Unmarshal(rec.Body, &profile); err != nil {
		return nil, 0, fmt.Errorf("corrupt user profile record: %w", err)
	}
	return &profile, rec.Version, nil
}

func (s *Service) container(ctx context.Context, tx store.RecordTx, containerID string) (*models.Container, int64, error) {
	rec, err := tx.Get(ctx, keys.Container(containerID))
	if err != nil {
		return nil, 0, err
	}
	var container models.Container
	if err := json.Unmarshal(rec.Body, &container); err != nil {
		return nil, 0, fmt.Errorf("corrupt container record: %w", err)
	}
	return &container, rec.Version, nil
}

func createJSON(ctx context.Context, tx store.RecordTx, key, kind string, value any) error {
	body, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s record: %w", kind, err)
	}
	return tx.Create(ctx, key, kind, body)
}

func updateJSON(ctx context.Context, tx store.RecordTx, key string, value any, expectedVersion int64) error {
	body, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal record %s: %w", key, err)
	}
	return tx.Update(ctx, key, body, expectedVersion)
}
