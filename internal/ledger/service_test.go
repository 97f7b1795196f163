package ledger

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"ecobottle-ledger-go/internal/database"
	"ecobottle-ledger-go/internal/keys"
	"ecobottle-ledger-go/internal/models"
	"ecobottle-ledger-go/internal/store"
)

const testAuthority = "authority-1"

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

// failingTokenLedger rejects mints and burns but serves balances from the
// wrapped ledger. Used to verify that a token-side failure leaves no record
// store state behind.
type failingTokenLedger struct {
	store.TokenLedger
}

func (f failingTokenLedger) Mint(ctx context.Context, toUser string, amount uint64, reference string) error {
	return errors.New("token ledger unavailable")
}

func (f failingTokenLedger) Burn(ctx context.Context, fromUser string, amount uint64, reference string) error {
	return errors.New("token ledger unavailable")
}

func setupTestService(t *testing.T) (*Service, func()) {
	ctx := context.Background()

	records, err := database.NewService(ctx, models.DatabaseConfig{
		Path:         ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		PingTimeout:  5 * time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to create record store: %v", err)
	}

	tokens, err := database.NewTokenLedger(ctx, ":memory:")
	if err != nil {
		records.Close()
		t.Fatalf("Failed to create token ledger: %v", err)
	}

	svc := NewService(records, tokens)
	svc.clock = fixedClock{now: time.Unix(1700000000, 0)}

	cleanup := func() {
		tokens.Close()
		records.Close()
	}
	return svc, cleanup
}

func initLedger(t *testing.T, svc *Service, ecocPerKG, minWeight uint64) {
	t.Helper()
	err := svc.Initialize(context.Background(), InitializeParams{
		Authority:        testAuthority,
		EcocPerKG:        ecocPerKG,
		MinDepositWeight: minWeight,
	})
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
}

func registerUser(t *testing.T, svc *Service, owner string) {
	t.Helper()
	_, err := svc.RegisterUser(context.Background(), RegisterUserParams{Owner: owner, Username: owner})
	if err != nil {
		t.Fatalf("RegisterUser failed: %v", err)
	}
}

func registerContainer(t *testing.T, svc *Service, id string, capacityKG uint64) {
	t.Helper()
	_, err := svc.RegisterContainer(context.Background(), RegisterContainerParams{
		Authority:   testAuthority,
		ContainerID: id,
		Location:    "Main Street 1",
		CapacityKG:  capacityKG,
	})
	if err != nil {
		t.Fatalf("RegisterContainer failed: %v", err)
	}
}

func TestInitializeOnce(t *testing.T) {
	svc, cleanup := setupTestService(t)
	defer cleanup()

	initLedger(t, svc, 10, 50)

	global, err := svc.GetGlobalState(context.Background())
	if err != nil {
		t.Fatalf("GetGlobalState failed: %v", err)
	}
	if global.Authority != testAuthority {
		t.Errorf("Expected authority %s, got %s", testAuthority, global.Authority)
	}
	if global.EcocPerKG != 10 || global.MinDepositWeight != 50 {
		t.Errorf("Unexpected config: rate=%d min=%d", global.EcocPerKG, global.MinDepositWeight)
	}
	if global.TotalUsers != 0 || global.TotalContainers != 0 || global.TotalDeposits != 0 || global.TotalPetCollected != 0 {
		t.Errorf("Expected zeroed counters, got %+v", global)
	}

	err = svc.Initialize(context.Background(), InitializeParams{Authority: "someone-else", EcocPerKG: 99, MinDepositWeight: 1})
	if !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("Expected ErrAlreadyInitialized, got: %v", err)
	}

	// The original configuration must survive the failed re-init.
	global, err = svc.GetGlobalState(context.Background())
	if err != nil {
		t.Fatalf("GetGlobalState failed: %v", err)
	}
	if global.Authority != testAuthority || global.EcocPerKG != 10 {
		t.Errorf("Re-init overwrote global state: %+v", global)
	}
}

func TestOperationsRequireInitialize(t *testing.T) {
	svc, cleanup := setupTestService(t)
	defer cleanup()

	_, err := svc.RegisterUser(context.Background(), RegisterUserParams{Owner: "alice", Username: "alice"})
	if !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Expected ErrNotInitialized from RegisterUser, got: %v", err)
	}

	_, err = svc.GetGlobalState(context.Background())
	if !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Expected ErrNotInitialized from GetGlobalState, got: %v", err)
	}
}

func TestRegisterUser(t *testing.T) {
	svc, cleanup := setupTestService(t)
	defer cleanup()
	initLedger(t, svc, 10, 50)

	profile, err := svc.RegisterUser(context.Background(), RegisterUserParams{Owner: "alice", Username: "Alice"})
	if err != nil {
		t.Fatalf("RegisterUser failed: %v", err)
	}
	if profile.Owner != "alice" || profile.Username != "Alice" {
		t.Errorf("Unexpected profile: %+v", profile)
	}
	if profile.TotalDeposits != 0 || profile.TotalEcocEarned != 0 || profile.TotalEcocSpent != 0 {
		t.Errorf("Expected zeroed statistics, got %+v", profile)
	}
	if profile.CreatedAt != 1700000000 {
		t.Errorf("Expected clock timestamp, got %d", profile.CreatedAt)
	}

	global, err := svc.GetGlobalState(context.Background())
	if err != nil {
		t.Fatalf("GetGlobalState failed: %v", err)
	}
	if global.TotalUsers != 1 {
		t.Errorf("Expected TotalUsers 1, got %d", global.TotalUsers)
	}

	_, err = svc.RegisterUser(context.Background(), RegisterUserParams{Owner: "alice", Username: "Alice II"})
	if !errors.Is(err, ErrUserExists) {
		t.Fatalf("Expected ErrUserExists, got: %v", err)
	}

	// A failed duplicate registration must not bump the user count.
	global, _ = svc.GetGlobalState(context.Background())
	if global.TotalUsers != 1 {
		t.Errorf("Expected TotalUsers to stay 1, got %d", global.TotalUsers)
	}
}

func TestRegisterUserValidation(t *testing.T) {
	svc, cleanup := setupTestService(t)
	defer cleanup()
	initLedger(t, svc, 10, 50)

	_, err := svc.RegisterUser(context.Background(), RegisterUserParams{
		Owner:    "alice",
		Username: strings.Repeat("a", 33),
	})
	if !errors.Is(err, ErrUsernameTooLong) {
		t.Errorf("Expected ErrUsernameTooLong, got: %v", err)
	}
}

func TestRegisterContainer(t *testing.T) {
	svc, cleanup := setupTestService(t)
	defer cleanup()
	initLedger(t, svc, 10, 50)

	container, err := svc.RegisterContainer(context.Background(), RegisterContainerParams{
		Authority:   testAuthority,
		ContainerID: "c-1",
		Location:    "Central Station",
		CapacityKG:  5,
	})
	if err != nil {
		t.Fatalf("RegisterContainer failed: %v", err)
	}
	if !container.IsActive {
		t.Error("Expected new container to be active")
	}
	if container.RegisteredBy != testAuthority {
		t.Errorf("Expected RegisteredBy %s, got %s", testAuthority, container.RegisteredBy)
	}
	if container.CurrentWeight != 0 || container.TotalDeposits != 0 {
		t.Errorf("Expected empty container, got %+v", container)
	}

	global, _ := svc.GetGlobalState(context.Background())
	if global.TotalContainers != 1 {
		t.Errorf("Expected TotalContainers 1, got %d", global.TotalContainers)
	}

	_, err = svc.RegisterContainer(context.Background(), RegisterContainerParams{
		Authority:   testAuthority,
		ContainerID: "c-1",
		Location:    "Elsewhere",
		CapacityKG:  10,
	})
	if !errors.Is(err, ErrContainerExists) {
		t.Fatalf("Expected ErrContainerExists, got: %v", err)
	}
}

func TestRegisterContainerAuthorization(t *testing.T) {
	svc, cleanup := setupTestService(t)
	defer cleanup()
	initLedger(t, svc, 10, 50)

	_, err := svc.RegisterContainer(context.Background(), RegisterContainerParams{
		Authority:   "impostor",
		ContainerID: "c-1",
		Location:    "Central Station",
		CapacityKG:  5,
	})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("Expected ErrUnauthorized, got: %v", err)
	}

	_, err = svc.GetContainer(context.Background(), "c-1")
	if !errors.Is(err, store.ErrRecordNotFound) {
		t.Errorf("Expected no container after unauthorized attempt, got: %v", err)
	}
}

func TestRegisterContainerValidation(t *testing.T) {
	svc, cleanup := setupTestService(t)
	defer cleanup()
	initLedger(t, svc, 10, 50)

	_, err := svc.RegisterContainer(context.Background(), RegisterContainerParams{
		Authority:   testAuthority,
		ContainerID: strings.Repeat("c", 33),
		Location:    "ok",
		CapacityKG:  5,
	})
	if !errors.Is(err, ErrContainerIDTooLong) {
		t.Errorf("Expected ErrContainerIDTooLong, got: %v", err)
	}

	_, err = svc.RegisterContainer(context.Background(), RegisterContainerParams{
		Authority:   testAuthority,
		ContainerID: "c-1",
		Location:    strings.Repeat("l", 65),
		CapacityKG:  5,
	})
	if !errors.Is(err, ErrLocationTooLong) {
		t.Errorf("Expected ErrLocationTooLong, got: %v", err)
	}
}

func TestProcessDeposit(t *testing.T) {
	svc, cleanup := setupTestService(t)
	defer cleanup()
	initLedger(t, svc, 10, 50)
	registerUser(t, svc, "alice")
	registerContainer(t, svc, "c-1", 5)

	ctx := context.Background()
	record, err := svc.ProcessDeposit(ctx, DepositParams{User: "alice", ContainerID: "c-1", WeightGrams: 1500})
	if err != nil {
		t.Fatalf("ProcessDeposit failed: %v", err)
	}

	// 1500g at 10 ECOC/kg = 15 ECOC.
	if record.EcocReward != 15 {
		t.Errorf("Expected reward 15, got %d", record.EcocReward)
	}
	if record.Sequence != 0 {
		t.Errorf("Expected sequence 0, got %d", record.Sequence)
	}
	if record.AuditTag == "" {
		t.Error("Expected a non-empty audit tag")
	}
	if record.Timestamp != 1700000000 {
		t.Errorf("Expected clock timestamp, got %d", record.Timestamp)
	}

	container, err := svc.GetContainer(ctx, "c-1")
	if err != nil {
		t.Fatalf("GetContainer failed: %v", err)
	}
	if container.CurrentWeight != 1500 || container.TotalDeposits != 1 {
		t.Errorf("Unexpected container state: %+v", container)
	}

	profile, err := svc.GetUserProfile(ctx, "alice")
	if err != nil {
		t.Fatalf("GetUserProfile failed: %v", err)
	}
	if profile.TotalDeposits != 1 || profile.TotalPetWeight != 1500 || profile.TotalEcocEarned != 15 {
		t.Errorf("Unexpected profile state: %+v", profile)
	}

	global, _ := svc.GetGlobalState(ctx)
	if global.TotalDeposits != 1 || global.TotalPetCollected != 1500 {
		t.Errorf("Unexpected global state: %+v", global)
	}

	balance, err := svc.tokens.BalanceOf(ctx, "alice")
	if err != nil {
		t.Fatalf("BalanceOf failed: %v", err)
	}
	if balance != 15 {
		t.Errorf("Expected balance 15, got %d", balance)
	}
}

func TestProcessDepositHighRate(t *testing.T) {
	svc, cleanup := setupTestService(t)
	defer cleanup()
	initLedger(t, svc, 100, 50)
	registerUser(t, svc, "alice")
	registerContainer(t, svc, "c-1", 50)

	record, err := svc.ProcessDeposit(context.Background(), DepositParams{User: "alice", ContainerID: "c-1", WeightGrams: 1500})
	if err != nil {
		t.Fatalf("ProcessDeposit failed: %v", err)
	}
	if record.EcocReward != 150 {
		t.Errorf("Expected reward 150 at rate 100, got %d", record.EcocReward)
	}
}

func TestProcessDepositNearCapacity(t *testing.T) {
	svc, cleanup := setupTestService(t)
	defer cleanup()
	initLedger(t, svc, 10, 50)
	registerUser(t, svc, "alice")
	registerContainer(t, svc, "c-1", 5)

	ctx := context.Background()

	// Fill the 5 kg container to 4900g.
	if _, err := svc.ProcessDeposit(ctx, DepositParams{User: "alice", ContainerID: "c-1", WeightGrams: 4900}); err != nil {
		t.Fatalf("Fill deposit failed: %v", err)
	}

	// 4900 + 200 > 5000: rejected, nothing changes.
	_, err := svc.ProcessDeposit(ctx, DepositParams{User: "alice", ContainerID: "c-1", WeightGrams: 200})
	if !errors.Is(err, ErrContainerFull) {
		t.Fatalf("Expected ErrContainerFull, got: %v", err)
	}
	container, _ := svc.GetContainer(ctx, "c-1")
	if container.CurrentWeight != 4900 {
		t.Errorf("Expected weight unchanged at 4900, got %d", container.CurrentWeight)
	}

	// 4900 + 90 = 4990 fits exactly under capacity; 90g at rate 10 truncates
	// to a zero reward but the deposit itself succeeds.
	record, err := svc.ProcessDeposit(ctx, DepositParams{User: "alice", ContainerID: "c-1", WeightGrams: 90})
	if err != nil {
		t.Fatalf("ProcessDeposit failed: %v", err)
	}
	if record.EcocReward != 0 {
		t.Errorf("Expected zero reward for 90g at rate 10, got %d", record.EcocReward)
	}
	container, _ = svc.GetContainer(ctx, "c-1")
	if container.CurrentWeight != 4990 {
		t.Errorf("Expected weight 4990, got %d", container.CurrentWeight)
	}

	balance, err := svc.tokens.BalanceOf(ctx, "alice")
	if err != nil {
		t.Fatalf("BalanceOf failed: %v", err)
	}
	if balance != 49 {
		t.Errorf("Expected balance 49 (4900g at rate 10), got %d", balance)
	}
}

func TestProcessDepositExactCapacityBoundary(t *testing.T) {
	svc, cleanup := setupTestService(t)
	defer cleanup()
	initLedger(t, svc, 10, 50)
	registerUser(t, svc, "alice")
	registerContainer(t, svc, "c-1", 5)

	// A deposit landing exactly on capacity is allowed.
	ctx := context.Background()
	if _, err := svc.ProcessDeposit(ctx, DepositParams{User: "alice", ContainerID: "c-1", WeightGrams: 5000}); err != nil {
		t.Fatalf("Exact-capacity deposit failed: %v", err)
	}

	_, err := svc.ProcessDeposit(ctx, DepositParams{User: "alice", ContainerID: "c-1", WeightGrams: 50})
	if !errors.Is(err, ErrContainerFull) {
		t.Errorf("Expected ErrContainerFull on full container, got: %v", err)
	}
}

func TestProcessDepositPreconditions(t *testing.T) {
	svc, cleanup := setupTestService(t)
	defer cleanup()
	initLedger(t, svc, 10, 50)
	registerUser(t, svc, "alice")
	registerContainer(t, svc, "c-1", 5)

	ctx := context.Background()

	_, err := svc.ProcessDeposit(ctx, DepositParams{User: "alice", ContainerID: "c-1", WeightGrams: 49})
	if !errors.Is(err, ErrWeightTooLow) {
		t.Errorf("Expected ErrWeightTooLow, got: %v", err)
	}

	_, err = svc.ProcessDeposit(ctx, DepositParams{User: "alice", ContainerID: "missing", WeightGrams: 100})
	if !errors.Is(err, store.ErrRecordNotFound) {
		t.Errorf("Expected ErrRecordNotFound for unknown container, got: %v", err)
	}

	_, err = svc.ProcessDeposit(ctx, DepositParams{User: "nobody", ContainerID: "c-1", WeightGrams: 100})
	if !errors.Is(err, store.ErrRecordNotFound) {
		t.Errorf("Expected ErrRecordNotFound for unknown user, got: %v", err)
	}

	// Deactivate and check the inactive gate fires before the weight check.
	if _, err := svc.ToggleContainerStatus(ctx, ToggleContainerParams{Authority: testAuthority, ContainerID: "c-1"}); err != nil {
		t.Fatalf("ToggleContainerStatus failed: %v", err)
	}
	_, err = svc.ProcessDeposit(ctx, DepositParams{User: "alice", ContainerID: "c-1", WeightGrams: 10})
	if !errors.Is(err, ErrContainerInactive) {
		t.Errorf("Expected ErrContainerInactive, got: %v", err)
	}
}

func TestProcessDepositSequencedKeys(t *testing.T) {
	svc, cleanup := setupTestService(t)
	defer cleanup()
	initLedger(t, svc, 10, 50)
	registerUser(t, svc, "alice")
	registerContainer(t, svc, "c-1", 100)

	ctx := context.Background()
	first, err := svc.ProcessDeposit(ctx, DepositParams{User: "alice", ContainerID: "c-1", WeightGrams: 100})
	if err != nil {
		t.Fatalf("First deposit failed: %v", err)
	}
	second, err := svc.ProcessDeposit(ctx, DepositParams{User: "alice", ContainerID: "c-1", WeightGrams: 200})
	if err != nil {
		t.Fatalf("Second deposit failed: %v", err)
	}

	if first.Sequence != 0 || second.Sequence != 1 {
		t.Errorf("Expected sequences 0 and 1, got %d and %d", first.Sequence, second.Sequence)
	}
	if first.AuditTag == second.AuditTag {
		t.Error("Expected distinct audit tags per deposit")
	}

	// Both records are addressable under their derived keys.
	for seq := uint64(0); seq < 2; seq++ {
		if _, err := svc.records.Get(ctx, keys.Deposit("alice", seq)); err != nil {
			t.Errorf("Deposit record %d not found: %v", seq, err)
		}
	}
}

func TestProcessDepositMintFailureRollsBack(t *testing.T) {
	svc, cleanup := setupTestService(t)
	defer cleanup()
	initLedger(t, svc, 10, 50)
	registerUser(t, svc, "alice")
	registerContainer(t, svc, "c-1", 5)

	ctx := context.Background()
	broken := NewService(svc.records, failingTokenLedger{TokenLedger: svc.tokens})
	broken.clock = svc.clock

	_, err := broken.ProcessDeposit(ctx, DepositParams{User: "alice", ContainerID: "c-1", WeightGrams: 1500})
	if err == nil {
		t.Fatal("Expected deposit to fail when the mint fails")
	}

	// Every staged mutation must be rolled back.
	container, _ := svc.GetContainer(ctx, "c-1")
	if container.CurrentWeight != 0 || container.TotalDeposits != 0 {
		t.Errorf("Container mutated despite rollback: %+v", container)
	}
	profile, _ := svc.GetUserProfile(ctx, "alice")
	if profile.TotalDeposits != 0 || profile.TotalEcocEarned != 0 {
		t.Errorf("Profile mutated despite rollback: %+v", profile)
	}
	global, _ := svc.GetGlobalState(ctx)
	if global.TotalDeposits != 0 || global.TotalPetCollected != 0 {
		t.Errorf("Global state mutated despite rollback: %+v", global)
	}
	if _, err := svc.records.Get(ctx, keys.Deposit("alice", 0)); !errors.Is(err, store.ErrRecordNotFound) {
		t.Errorf("Expected no deposit record after rollback, got: %v", err)
	}
}

func TestRedeemTokens(t *testing.T) {
	svc, cleanup := setupTestService(t)
	defer cleanup()
	initLedger(t, svc, 10, 50)
	registerUser(t, svc, "alice")
	registerContainer(t, svc, "c-1", 10)

	ctx := context.Background()
	// 2000g at rate 10 = 20 ECOC earned.
	if _, err := svc.ProcessDeposit(ctx, DepositParams{User: "alice", ContainerID: "c-1", WeightGrams: 2000}); err != nil {
		t.Fatalf("ProcessDeposit failed: %v", err)
	}

	record, err := svc.RedeemTokens(ctx, RedeemParams{User: "alice", ProductID: "coffee-voucher", Amount: 15})
	if err != nil {
		t.Fatalf("RedeemTokens failed: %v", err)
	}
	if record.Sequence != 0 || record.ProductID != "coffee-voucher" || record.Amount != 15 {
		t.Errorf("Unexpected redemption record: %+v", record)
	}
	if record.AuditTag == "" {
		t.Error("Expected a non-empty audit tag")
	}

	balance, err := svc.tokens.BalanceOf(ctx, "alice")
	if err != nil {
		t.Fatalf("BalanceOf failed: %v", err)
	}
	if balance != 5 {
		t.Errorf("Expected balance 5 after redemption, got %d", balance)
	}

	profile, _ := svc.GetUserProfile(ctx, "alice")
	if profile.TotalEcocSpent != 15 || profile.TotalRedemptions != 1 {
		t.Errorf("Unexpected profile state: %+v", profile)
	}
	// Earned statistics are accrual-only and unaffected by spending.
	if profile.TotalEcocEarned != 20 {
		t.Errorf("Expected TotalEcocEarned 20, got %d", profile.TotalEcocEarned)
	}

	if _, err := svc.records.Get(ctx, keys.Redemption("alice", 0)); err != nil {
		t.Errorf("Redemption record not found: %v", err)
	}
}

func TestRedeemTokensInsufficientBalance(t *testing.T) {
	svc, cleanup := setupTestService(t)
	defer cleanup()
	initLedger(t, svc, 10, 50)
	registerUser(t, svc, "alice")
	registerContainer(t, svc, "c-1", 10)

	ctx := context.Background()
	if _, err := svc.ProcessDeposit(ctx, DepositParams{User: "alice", ContainerID: "c-1", WeightGrams: 1000}); err != nil {
		t.Fatalf("ProcessDeposit failed: %v", err)
	}

	_, err := svc.RedeemTokens(ctx, RedeemParams{User: "alice", ProductID: "p", Amount: 11})
	if !errors.Is(err, ErrInsufficientTokens) {
		t.Fatalf("Expected ErrInsufficientTokens, got: %v", err)
	}

	// The failed redemption leaves balance and statistics untouched.
	balance, _ := svc.tokens.BalanceOf(ctx, "alice")
	if balance != 10 {
		t.Errorf("Expected balance 10, got %d", balance)
	}
	profile, _ := svc.GetUserProfile(ctx, "alice")
	if profile.TotalEcocSpent != 0 || profile.TotalRedemptions != 0 {
		t.Errorf("Unexpected profile state: %+v", profile)
	}
}

func TestRedeemTokensValidation(t *testing.T) {
	svc, cleanup := setupTestService(t)
	defer cleanup()
	initLedger(t, svc, 10, 50)
	registerUser(t, svc, "alice")

	_, err := svc.RedeemTokens(context.Background(), RedeemParams{
		User:      "alice",
		ProductID: strings.Repeat("p", 33),
		Amount:    1,
	})
	if !errors.Is(err, ErrProductIDTooLong) {
		t.Errorf("Expected ErrProductIDTooLong, got: %v", err)
	}
}

func TestRedeemTokensBurnFailureRollsBack(t *testing.T) {
	svc, cleanup := setupTestService(t)
	defer cleanup()
	initLedger(t, svc, 10, 50)
	registerUser(t, svc, "alice")
	registerContainer(t, svc, "c-1", 10)

	ctx := context.Background()
	if _, err := svc.ProcessDeposit(ctx, DepositParams{User: "alice", ContainerID: "c-1", WeightGrams: 2000}); err != nil {
		t.Fatalf("ProcessDeposit failed: %v", err)
	}

	broken := NewService(svc.records, failingTokenLedger{TokenLedger: svc.tokens})
	broken.clock = svc.clock

	_, err := broken.RedeemTokens(ctx, RedeemParams{User: "alice", ProductID: "p", Amount: 5})
	if err == nil {
		t.Fatal("Expected redemption to fail when the burn fails")
	}

	profile, _ := svc.GetUserProfile(ctx, "alice")
	if profile.TotalEcocSpent != 0 || profile.TotalRedemptions != 0 {
		t.Errorf("Profile mutated despite rollback: %+v", profile)
	}
	if _, err := svc.records.Get(ctx, keys.Redemption("alice", 0)); !errors.Is(err, store.ErrRecordNotFound) {
		t.Errorf("Expected no redemption record after rollback, got: %v", err)
	}
}

func TestCollectContainer(t *testing.T) {
	svc, cleanup := setupTestService(t)
	defer cleanup()
	initLedger(t, svc, 10, 50)
	registerUser(t, svc, "alice")
	registerContainer(t, svc, "c-1", 10)

	ctx := context.Background()
	if _, err := svc.ProcessDeposit(ctx, DepositParams{User: "alice", ContainerID: "c-1", WeightGrams: 3000}); err != nil {
		t.Fatalf("ProcessDeposit failed: %v", err)
	}
	if _, err := svc.ProcessDeposit(ctx, DepositParams{User: "alice", ContainerID: "c-1", WeightGrams: 1000}); err != nil {
		t.Fatalf("ProcessDeposit failed: %v", err)
	}

	record, err := svc.CollectContainer(ctx, CollectParams{ContainerID: "c-1", Collector: "truck-7"})
	if err != nil {
		t.Fatalf("CollectContainer failed: %v", err)
	}
	if record.WeightCollected != 4000 {
		t.Errorf("Expected collected weight 4000, got %d", record.WeightCollected)
	}
	if !record.Verified {
		t.Error("Expected collection to be marked verified")
	}
	if record.Collector != "truck-7" || record.Sequence != 0 {
		t.Errorf("Unexpected collection record: %+v", record)
	}

	container, _ := svc.GetContainer(ctx, "c-1")
	if container.CurrentWeight != 0 {
		t.Errorf("Expected container emptied, got weight %d", container.CurrentWeight)
	}
	if container.LastCollection != 1700000000 {
		t.Errorf("Expected LastCollection stamped, got %d", container.LastCollection)
	}
	// The lifetime deposit count survives collection.
	if container.TotalDeposits != 2 {
		t.Errorf("Expected TotalDeposits 2 after collection, got %d", container.TotalDeposits)
	}
	if container.TotalCollections != 1 {
		t.Errorf("Expected TotalCollections 1, got %d", container.TotalCollections)
	}

	if _, err := svc.records.Get(ctx, keys.Collection("c-1", 0)); err != nil {
		t.Errorf("Collection record not found: %v", err)
	}

	// The container can fill up again after collection.
	if _, err := svc.ProcessDeposit(ctx, DepositParams{User: "alice", ContainerID: "c-1", WeightGrams: 500}); err != nil {
		t.Errorf("Post-collection deposit failed: %v", err)
	}
}

func TestCollectContainerPreconditions(t *testing.T) {
	svc, cleanup := setupTestService(t)
	defer cleanup()
	initLedger(t, svc, 10, 50)
	registerContainer(t, svc, "c-1", 10)

	ctx := context.Background()
	_, err := svc.CollectContainer(ctx, CollectParams{ContainerID: "c-1", Collector: "truck-7"})
	if !errors.Is(err, ErrContainerEmpty) {
		t.Errorf("Expected ErrContainerEmpty, got: %v", err)
	}

	if _, err := svc.ToggleContainerStatus(ctx, ToggleContainerParams{Authority: testAuthority, ContainerID: "c-1"}); err != nil {
		t.Fatalf("ToggleContainerStatus failed: %v", err)
	}
	_, err = svc.CollectContainer(ctx, CollectParams{ContainerID: "c-1", Collector: "truck-7"})
	if !errors.Is(err, ErrContainerInactive) {
		t.Errorf("Expected ErrContainerInactive, got: %v", err)
	}

	_, err = svc.CollectContainer(ctx, CollectParams{ContainerID: "missing", Collector: "truck-7"})
	if !errors.Is(err, store.ErrRecordNotFound) {
		t.Errorf("Expected ErrRecordNotFound, got: %v", err)
	}
}

func TestUpdateConfig(t *testing.T) {
	svc, cleanup := setupTestService(t)
	defer cleanup()
	initLedger(t, svc, 10, 50)
	registerUser(t, svc, "alice")
	registerContainer(t, svc, "c-1", 100)

	ctx := context.Background()
	newRate := uint64(20)
	if err := svc.UpdateConfig(ctx, UpdateConfigParams{Authority: testAuthority, NewEcocPerKG: &newRate}); err != nil {
		t.Fatalf("UpdateConfig failed: %v", err)
	}

	global, _ := svc.GetGlobalState(ctx)
	if global.EcocPerKG != 20 {
		t.Errorf("Expected rate 20, got %d", global.EcocPerKG)
	}
	// The omitted field keeps its previous value.
	if global.MinDepositWeight != 50 {
		t.Errorf("Expected min weight unchanged at 50, got %d", global.MinDepositWeight)
	}

	// Subsequent deposits use the new rate.
	record, err := svc.ProcessDeposit(ctx, DepositParams{User: "alice", ContainerID: "c-1", WeightGrams: 1000})
	if err != nil {
		t.Fatalf("ProcessDeposit failed: %v", err)
	}
	if record.EcocReward != 20 {
		t.Errorf("Expected reward 20 at new rate, got %d", record.EcocReward)
	}

	newMin := uint64(200)
	if err := svc.UpdateConfig(ctx, UpdateConfigParams{Authority: testAuthority, NewMinDepositWeight: &newMin}); err != nil {
		t.Fatalf("UpdateConfig failed: %v", err)
	}
	_, err = svc.ProcessDeposit(ctx, DepositParams{User: "alice", ContainerID: "c-1", WeightGrams: 199})
	if !errors.Is(err, ErrWeightTooLow) {
		t.Errorf("Expected ErrWeightTooLow at new minimum, got: %v", err)
	}
}

func TestUpdateConfigAuthorization(t *testing.T) {
	svc, cleanup := setupTestService(t)
	defer cleanup()
	initLedger(t, svc, 10, 50)

	newRate := uint64(1000)
	err := svc.UpdateConfig(context.Background(), UpdateConfigParams{Authority: "impostor", NewEcocPerKG: &newRate})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("Expected ErrUnauthorized, got: %v", err)
	}

	global, _ := svc.GetGlobalState(context.Background())
	if global.EcocPerKG != 10 {
		t.Errorf("Expected rate unchanged at 10, got %d", global.EcocPerKG)
	}
}

func TestToggleContainerStatus(t *testing.T) {
	svc, cleanup := setupTestService(t)
	defer cleanup()
	initLedger(t, svc, 10, 50)
	registerContainer(t, svc, "c-1", 5)

	ctx := context.Background()
	container, err := svc.ToggleContainerStatus(ctx, ToggleContainerParams{Authority: testAuthority, ContainerID: "c-1"})
	if err != nil {
		t.Fatalf("ToggleContainerStatus failed: %v", err)
	}
	if container.IsActive {
		t.Error("Expected container deactivated")
	}

	container, err = svc.ToggleContainerStatus(ctx, ToggleContainerParams{Authority: testAuthority, ContainerID: "c-1"})
	if err != nil {
		t.Fatalf("ToggleContainerStatus failed: %v", err)
	}
	if !container.IsActive {
		t.Error("Expected container reactivated")
	}

	_, err = svc.ToggleContainerStatus(ctx, ToggleContainerParams{Authority: "impostor", ContainerID: "c-1"})
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized, got: %v", err)
	}
}

func TestListProfilesAndContainers(t *testing.T) {
	svc, cleanup := setupTestService(t)
	defer cleanup()
	initLedger(t, svc, 10, 50)
	registerUser(t, svc, "alice")
	registerUser(t, svc, "bob")
	registerContainer(t, svc, "c-1", 5)
	registerContainer(t, svc, "c-2", 10)

	ctx := context.Background()
	profiles, err := svc.ListUserProfiles(ctx)
	if err != nil {
		t.Fatalf("ListUserProfiles failed: %v", err)
	}
	if len(profiles) != 2 {
		t.Fatalf("Expected 2 profiles, got %d", len(profiles))
	}

	containers, err := svc.ListContainers(ctx)
	if err != nil {
		t.Fatalf("ListContainers failed: %v", err)
	}
	if len(containers) != 2 {
		t.Fatalf("Expected 2 containers, got %d", len(containers))
	}
	if containers[0].ContainerID != "c-1" || containers[1].ContainerID != "c-2" {
		t.Errorf("Expected key-ordered containers, got %s, %s", containers[0].ContainerID, containers[1].ContainerID)
	}
}
