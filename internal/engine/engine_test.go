package engine_test

import (
	"context"
	"testing"

	"asset-service/internal/engine"
	"asset-service/internal/model"
	"asset-service/internal/validator"
	"asset-service/pkg/database"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fixture struct {
	db        *gorm.DB
	eng       *engine.Engine
	asset     model.Asset
	warehouse model.Location
	office    model.Location
	actor     model.User
	assignee  model.User
}

func setupEngineTest(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get database object: %v", err)
	}
	// A single connection keeps the in-memory database alive across the pool
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	f := &fixture{db: db, eng: engine.New(db)}

	category := model.Category{Name: "Laptop"}
	if err := db.Create(&category).Error; err != nil {
		t.Fatalf("failed to seed category: %v", err)
	}

	f.warehouse = model.Location{Name: "Warehouse"}
	f.office = model.Location{Name: "Office"}
	if err := db.Create(&f.warehouse).Error; err != nil {
		t.Fatalf("failed to seed warehouse: %v", err)
	}
	if err := db.Create(&f.office).Error; err != nil {
		t.Fatalf("failed to seed office: %v", err)
	}

	f.actor = model.User{Username: "u1", Role: model.RoleCustodian}
	f.assignee = model.User{Username: "u2", Role: model.RoleStaff}
	if err := db.Create(&f.actor).Error; err != nil {
		t.Fatalf("failed to seed actor: %v", err)
	}
	if err := db.Create(&f.assignee).Error; err != nil {
		t.Fatalf("failed to seed assignee: %v", err)
	}

	f.asset = model.Asset{
		AssetTag:          "A001",
		Name:              "Test Laptop",
		CategoryID:        category.ID,
		Status:            model.StatusAvailable,
		CurrentLocationID: f.warehouse.ID,
	}
	if err := db.Create(&f.asset).Error; err != nil {
		t.Fatalf("failed to seed asset: %v", err)
	}

	return f
}

func (f *fixture) reloadAsset(t *testing.T) model.Asset {
	t.Helper()
	var asset model.Asset
	if err := f.db.First(&asset, f.asset.ID).Error; err != nil {
		t.Fatalf("failed to reload asset: %v", err)
	}
	return asset
}

func (f *fixture) ledger(t *testing.T) []model.Transaction {
	t.Helper()
	var entries []model.Transaction
	if err := f.db.Where("asset_id = ?", f.asset.ID).Order("created_at ASC, id ASC").Find(&entries).Error; err != nil {
		t.Fatalf("failed to load ledger: %v", err)
	}
	return entries
}

func TestCheckout(t *testing.T) {
	f := setupEngineTest(t)
	ctx := context.Background()

	result, err := f.eng.Checkout(ctx, f.asset.ID, f.actor.ID, validator.CheckoutRequest{
		AssignedToID: f.assignee.ID,
		Remarks:      "new hire",
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if result.Status != model.StatusAssigned {
		t.Errorf("expected status ASSIGNED, got %s", result.Status)
	}
	if result.Message != "Checked out successfully." {
		t.Errorf("unexpected message: %q", result.Message)
	}

	asset := f.reloadAsset(t)
	if asset.Status != model.StatusAssigned {
		t.Errorf("expected asset status ASSIGNED, got %s", asset.Status)
	}
	if asset.CurrentLocationID != f.warehouse.ID {
		t.Errorf("checkout must not move the asset")
	}

	entries := f.ledger(t)
	if len(entries) != 1 {
		t.Fatalf("expected 1 ledger entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Type != model.TypeCheckout {
		t.Errorf("expected CHECKOUT entry, got %s", entry.Type)
	}
	if entry.AssignedToID == nil || *entry.AssignedToID != f.assignee.ID {
		t.Errorf("assigned_to not recorded")
	}
	if entry.PerformedByID != f.actor.ID {
		t.Errorf("performed_by not recorded")
	}
	if entry.FromLocationID == nil || *entry.FromLocationID != f.warehouse.ID {
		t.Errorf("from_location should snapshot the current location")
	}
	if entry.ToLocationID == nil || *entry.ToLocationID != f.warehouse.ID {
		t.Errorf("to_location should snapshot the current location")
	}
}

func TestCheckoutTwiceOnlyOneSucceeds(t *testing.T) {
	f := setupEngineTest(t)
	ctx := context.Background()
	req := validator.CheckoutRequest{AssignedToID: f.assignee.ID}

	if _, err := f.eng.Checkout(ctx, f.asset.ID, f.actor.ID, req); err != nil {
		t.Fatalf("first checkout failed: %v", err)
	}

	_, err := f.eng.Checkout(ctx, f.asset.ID, f.actor.ID, req)
	if engine.KindOf(err) != engine.KindInvalidState {
		t.Fatalf("expected InvalidState on second checkout, got %v", err)
	}
	if err.Error() != "Asset must be AVAILABLE to checkout." {
		t.Errorf("unexpected message: %q", err.Error())
	}

	// Exactly one ledger entry, not two
	if entries := f.ledger(t); len(entries) != 1 {
		t.Errorf("expected 1 ledger entry after failed retry, got %d", len(entries))
	}
}

func TestCheckoutUnknownAsset(t *testing.T) {
	f := setupEngineTest(t)

	_, err := f.eng.Checkout(context.Background(), 9999, f.actor.ID, validator.CheckoutRequest{
		AssignedToID: f.assignee.ID,
	})
	if engine.KindOf(err) != engine.KindNotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestCheckoutUnknownAssigneeRollsBack(t *testing.T) {
	f := setupEngineTest(t)

	_, err := f.eng.Checkout(context.Background(), f.asset.ID, f.actor.ID, validator.CheckoutRequest{
		AssignedToID: 9999,
	})
	if engine.KindOf(err) != engine.KindNotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}

	// The status flip must have rolled back with the failed ledger append
	if asset := f.reloadAsset(t); asset.Status != model.StatusAvailable {
		t.Errorf("expected rollback to AVAILABLE, got %s", asset.Status)
	}
	if entries := f.ledger(t); len(entries) != 0 {
		t.Errorf("expected no ledger entries after rollback, got %d", len(entries))
	}
}

func TestReturnGood(t *testing.T) {
	f := setupEngineTest(t)
	ctx := context.Background()

	if _, err := f.eng.Checkout(ctx, f.asset.ID, f.actor.ID, validator.CheckoutRequest{AssignedToID: f.assignee.ID}); err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	result, err := f.eng.Return(ctx, f.asset.ID, f.actor.ID, validator.ReturnRequest{
		ConditionOnReturn: model.ConditionGood,
	})
	if err != nil {
		t.Fatalf("return failed: %v", err)
	}
	if result.Status != model.StatusAvailable {
		t.Errorf("GOOD return should yield AVAILABLE, got %s", result.Status)
	}

	asset := f.reloadAsset(t)
	if asset.Status != model.StatusAvailable {
		t.Errorf("expected AVAILABLE, got %s", asset.Status)
	}
	if asset.CurrentLocationID != f.warehouse.ID {
		t.Errorf("return without destination must not move the asset")
	}

	entries := f.ledger(t)
	if len(entries) != 2 {
		t.Fatalf("expected 2 ledger entries, got %d", len(entries))
	}
	last := entries[1]
	if last.Type != model.TypeReturn {
		t.Errorf("expected RETURN entry, got %s", last.Type)
	}
	if last.ConditionOnReturn == nil || *last.ConditionOnReturn != model.ConditionGood {
		t.Errorf("condition_on_return not recorded")
	}
	if last.AssignedToID != nil {
		t.Errorf("assigned_to must be null on RETURN")
	}
}

func TestReturnDamagedGoesToRepair(t *testing.T) {
	f := setupEngineTest(t)
	ctx := context.Background()

	if _, err := f.eng.Checkout(ctx, f.asset.ID, f.actor.ID, validator.CheckoutRequest{AssignedToID: f.assignee.ID}); err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	result, err := f.eng.Return(ctx, f.asset.ID, f.actor.ID, validator.ReturnRequest{
		ConditionOnReturn: model.ConditionDamaged,
	})
	if err != nil {
		t.Fatalf("return failed: %v", err)
	}
	if result.Status != model.StatusRepair {
		t.Errorf("DAMAGED return should yield REPAIR, got %s", result.Status)
	}
	if result.Message != "Returned successfully. New status: REPAIR" {
		t.Errorf("unexpected message: %q", result.Message)
	}
	if asset := f.reloadAsset(t); asset.Status != model.StatusRepair {
		t.Errorf("expected REPAIR, got %s", asset.Status)
	}
}

func TestReturnMissingPartsGoesToRepair(t *testing.T) {
	f := setupEngineTest(t)
	ctx := context.Background()

	if _, err := f.eng.Checkout(ctx, f.asset.ID, f.actor.ID, validator.CheckoutRequest{AssignedToID: f.assignee.ID}); err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	result, err := f.eng.Return(ctx, f.asset.ID, f.actor.ID, validator.ReturnRequest{
		ConditionOnReturn: model.ConditionMissingParts,
	})
	if err != nil {
		t.Fatalf("return failed: %v", err)
	}
	if result.Status != model.StatusRepair {
		t.Errorf("MISSING_PARTS return should yield REPAIR, got %s", result.Status)
	}
}

func TestReturnWithDestinationMovesAsset(t *testing.T) {
	f := setupEngineTest(t)
	ctx := context.Background()

	if _, err := f.eng.Checkout(ctx, f.asset.ID, f.actor.ID, validator.CheckoutRequest{AssignedToID: f.assignee.ID}); err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	dest := f.office.ID
	if _, err := f.eng.Return(ctx, f.asset.ID, f.actor.ID, validator.ReturnRequest{
		ConditionOnReturn: model.ConditionGood,
		ToLocationID:      &dest,
	}); err != nil {
		t.Fatalf("return failed: %v", err)
	}

	if asset := f.reloadAsset(t); asset.CurrentLocationID != f.office.ID {
		t.Errorf("expected asset moved to office")
	}

	entries := f.ledger(t)
	last := entries[len(entries)-1]
	if last.FromLocationID == nil || *last.FromLocationID != f.warehouse.ID {
		t.Errorf("from_location should be the old location")
	}
	if last.ToLocationID == nil || *last.ToLocationID != f.office.ID {
		t.Errorf("to_location should be the destination")
	}
}

func TestReturnNotAssigned(t *testing.T) {
	f := setupEngineTest(t)

	_, err := f.eng.Return(context.Background(), f.asset.ID, f.actor.ID, validator.ReturnRequest{
		ConditionOnReturn: model.ConditionGood,
	})
	if engine.KindOf(err) != engine.KindInvalidState {
		t.Fatalf("expected InvalidState, got %v", err)
	}
	if err.Error() != "Asset must be ASSIGNED to return." {
		t.Errorf("unexpected message: %q", err.Error())
	}
}

func TestReturnUnknownDestinationRollsBack(t *testing.T) {
	f := setupEngineTest(t)
	ctx := context.Background()

	if _, err := f.eng.Checkout(ctx, f.asset.ID, f.actor.ID, validator.CheckoutRequest{AssignedToID: f.assignee.ID}); err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	dest := uint(9999)
	_, err := f.eng.Return(ctx, f.asset.ID, f.actor.ID, validator.ReturnRequest{
		ConditionOnReturn: model.ConditionGood,
		ToLocationID:      &dest,
	})
	if engine.KindOf(err) != engine.KindNotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
	if asset := f.reloadAsset(t); asset.Status != model.StatusAssigned {
		t.Errorf("failed return must leave the asset ASSIGNED, got %s", asset.Status)
	}
	if entries := f.ledger(t); len(entries) != 1 {
		t.Errorf("failed return must not append to the ledger")
	}
}

func TestTransfer(t *testing.T) {
	f := setupEngineTest(t)

	result, err := f.eng.Transfer(context.Background(), f.asset.ID, f.actor.ID, validator.TransferRequest{
		ToLocationID: f.office.ID,
		Remarks:      "office move",
	})
	if err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	if result.Status != model.StatusAvailable {
		t.Errorf("transfer must not change status, got %s", result.Status)
	}

	asset := f.reloadAsset(t)
	if asset.CurrentLocationID != f.office.ID {
		t.Errorf("expected asset at office")
	}
	if asset.Status != model.StatusAvailable {
		t.Errorf("transfer must not change status")
	}

	entries := f.ledger(t)
	if len(entries) != 1 {
		t.Fatalf("expected 1 ledger entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Type != model.TypeTransfer {
		t.Errorf("expected TRANSFER entry, got %s", entry.Type)
	}
	if entry.FromLocationID == nil || *entry.FromLocationID != f.warehouse.ID {
		t.Errorf("from_location should be the old location")
	}
	if entry.ToLocationID == nil || *entry.ToLocationID != f.office.ID {
		t.Errorf("to_location should be the new location")
	}
}

func TestTransferToSameLocation(t *testing.T) {
	f := setupEngineTest(t)

	_, err := f.eng.Transfer(context.Background(), f.asset.ID, f.actor.ID, validator.TransferRequest{
		ToLocationID: f.warehouse.ID,
	})
	if engine.KindOf(err) != engine.KindInvalidRequest {
		t.Fatalf("expected InvalidRequest, got %v", err)
	}
	if err.Error() != "Asset is already in that location." {
		t.Errorf("unexpected message: %q", err.Error())
	}
	if entries := f.ledger(t); len(entries) != 0 {
		t.Errorf("rejected transfer must not append to the ledger")
	}
}

func TestTransferRetiredAsset(t *testing.T) {
	f := setupEngineTest(t)
	ctx := context.Background()

	if _, err := f.eng.Retire(ctx, f.asset.ID, f.actor.ID, "obsolete"); err != nil {
		t.Fatalf("retire failed: %v", err)
	}

	_, err := f.eng.Transfer(ctx, f.asset.ID, f.actor.ID, validator.TransferRequest{
		ToLocationID: f.office.ID,
	})
	if engine.KindOf(err) != engine.KindInvalidState {
		t.Fatalf("expected InvalidState, got %v", err)
	}
	if err.Error() != "Cannot transfer a RETIRED asset." {
		t.Errorf("unexpected message: %q", err.Error())
	}
}

func TestTransferUnknownLocation(t *testing.T) {
	f := setupEngineTest(t)

	_, err := f.eng.Transfer(context.Background(), f.asset.ID, f.actor.ID, validator.TransferRequest{
		ToLocationID: 9999,
	})
	if engine.KindOf(err) != engine.KindNotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestRetire(t *testing.T) {
	f := setupEngineTest(t)
	ctx := context.Background()

	result, err := f.eng.Retire(ctx, f.asset.ID, f.actor.ID, "end of life")
	if err != nil {
		t.Fatalf("retire failed: %v", err)
	}
	if result.Status != model.StatusRetired {
		t.Errorf("expected RETIRED, got %s", result.Status)
	}

	entries := f.ledger(t)
	if len(entries) != 1 || entries[0].Type != model.TypeRetire {
		t.Fatalf("expected a single RETIRE entry")
	}

	// RETIRED is terminal
	if _, err := f.eng.Retire(ctx, f.asset.ID, f.actor.ID, ""); engine.KindOf(err) != engine.KindInvalidState {
		t.Fatalf("expected InvalidState on double retire, got %v", err)
	}
}

func TestRetireAssignedAsset(t *testing.T) {
	f := setupEngineTest(t)
	ctx := context.Background()

	if _, err := f.eng.Checkout(ctx, f.asset.ID, f.actor.ID, validator.CheckoutRequest{AssignedToID: f.assignee.ID}); err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	_, err := f.eng.Retire(ctx, f.asset.ID, f.actor.ID, "")
	if engine.KindOf(err) != engine.KindInvalidState {
		t.Fatalf("expected InvalidState, got %v", err)
	}
	if err.Error() != "Asset must be returned before it can be retired." {
		t.Errorf("unexpected message: %q", err.Error())
	}
}

func TestMarkRepaired(t *testing.T) {
	f := setupEngineTest(t)
	ctx := context.Background()

	if _, err := f.eng.Checkout(ctx, f.asset.ID, f.actor.ID, validator.CheckoutRequest{AssignedToID: f.assignee.ID}); err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if _, err := f.eng.Return(ctx, f.asset.ID, f.actor.ID, validator.ReturnRequest{ConditionOnReturn: model.ConditionDamaged}); err != nil {
		t.Fatalf("return failed: %v", err)
	}

	result, err := f.eng.MarkRepaired(ctx, f.asset.ID, f.actor.ID, "screen replaced")
	if err != nil {
		t.Fatalf("mark repaired failed: %v", err)
	}
	if result.Status != model.StatusAvailable {
		t.Errorf("expected AVAILABLE, got %s", result.Status)
	}

	entries := f.ledger(t)
	if len(entries) != 3 {
		t.Fatalf("expected 3 ledger entries, got %d", len(entries))
	}
	if entries[2].Type != model.TypeRepair {
		t.Errorf("expected REPAIR entry, got %s", entries[2].Type)
	}

	// Not under repair anymore
	if _, err := f.eng.MarkRepaired(ctx, f.asset.ID, f.actor.ID, ""); engine.KindOf(err) != engine.KindInvalidState {
		t.Fatalf("expected InvalidState, got %v", err)
	}
}

// Full lifecycle: checkout, damaged return, rejected same-location transfer.
func TestLifecycleScenario(t *testing.T) {
	f := setupEngineTest(t)
	ctx := context.Background()

	if _, err := f.eng.Checkout(ctx, f.asset.ID, f.actor.ID, validator.CheckoutRequest{AssignedToID: f.assignee.ID}); err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if asset := f.reloadAsset(t); asset.Status != model.StatusAssigned {
		t.Fatalf("expected ASSIGNED, got %s", asset.Status)
	}

	if _, err := f.eng.Return(ctx, f.asset.ID, f.actor.ID, validator.ReturnRequest{ConditionOnReturn: model.ConditionDamaged}); err != nil {
		t.Fatalf("return failed: %v", err)
	}
	asset := f.reloadAsset(t)
	if asset.Status != model.StatusRepair {
		t.Fatalf("expected REPAIR, got %s", asset.Status)
	}
	if asset.CurrentLocationID != f.warehouse.ID {
		t.Fatalf("location must be unchanged")
	}

	_, err := f.eng.Transfer(ctx, f.asset.ID, f.actor.ID, validator.TransferRequest{ToLocationID: f.warehouse.ID})
	if engine.KindOf(err) != engine.KindInvalidRequest {
		t.Fatalf("expected InvalidRequest, got %v", err)
	}

	entries := f.ledger(t)
	if len(entries) != 2 {
		t.Fatalf("expected 2 ledger entries, got %d", len(entries))
	}
	if entries[0].Type != model.TypeCheckout || entries[1].Type != model.TypeReturn {
		t.Fatalf("unexpected ledger order: %s, %s", entries[0].Type, entries[1].Type)
	}
}
