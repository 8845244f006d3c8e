package memstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	agreementdomain "handshake/backend/internal/agreement/domain"
	agreementrepo "handshake/backend/internal/agreement/repository"
	auditdomain "handshake/backend/internal/audit/domain"
	auditrepo "handshake/backend/internal/audit/repository"
	otpdomain "handshake/backend/internal/otp/domain"
	otprepo "handshake/backend/internal/otp/repository"
	"handshake/backend/internal/receipt"
	signaturedomain "handshake/backend/internal/signature/domain"
	signaturerepo "handshake/backend/internal/signature/repository"
)

var (
	_ agreementrepo.Repository = (*Agreements)(nil)
	_ otprepo.Repository       = (*Challenges)(nil)
	_ signaturerepo.Repository = (*Signatures)(nil)
	_ auditrepo.Repository     = (*AuditTrail)(nil)
)

func TestAgreements_UpdateStatusIsConditional(t *testing.T) {
	ctx := context.Background()
	repo := New().Agreements()
	_ = repo.Create(ctx, &agreementdomain.Agreement{ID: "a1", Status: agreementdomain.StatusPending})

	ok, err := repo.UpdateStatus(ctx, "a1", []agreementdomain.Status{agreementdomain.StatusOTPVerified},
		agreementdomain.StatusUpdate{Status: agreementdomain.StatusSigned})
	if err != nil || ok {
		t.Fatalf("UpdateStatus from wrong status = (%v, %v), want (false, nil)", ok, err)
	}
	ok, _ = repo.UpdateStatus(ctx, "a1", []agreementdomain.Status{agreementdomain.StatusPending},
		agreementdomain.StatusUpdate{Status: agreementdomain.StatusViewed})
	if !ok {
		t.Fatal("UpdateStatus from matching status should succeed")
	}
	a, _ := repo.GetByID(ctx, "a1")
	if a.Status != agreementdomain.StatusViewed {
		t.Errorf("status = %q, want viewed", a.Status)
	}
	if ok, _ := repo.UpdateStatus(ctx, "missing", agreementdomain.Open, agreementdomain.StatusUpdate{}); ok {
		t.Error("UpdateStatus on a missing agreement should report false")
	}
}

func TestAgreements_ConcurrentSignOnlyOneWins(t *testing.T) {
	ctx := context.Background()
	repo := New().Agreements()
	_ = repo.Create(ctx, &agreementdomain.Agreement{ID: "a1", Status: agreementdomain.StatusOTPVerified})

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, _ := repo.UpdateStatus(ctx, "a1", []agreementdomain.Status{agreementdomain.StatusOTPVerified},
				agreementdomain.StatusUpdate{Status: agreementdomain.StatusSigned})
			if ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	if wins.Load() != 1 {
		t.Errorf("winners = %d, want 1", wins.Load())
	}
}

func TestAgreements_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := New().Agreements()
	orig := &agreementdomain.Agreement{ID: "a1", SignerToken: "tok", ContractText: "X", FieldData: map[string]string{"k": "v"}}
	_ = repo.Create(ctx, orig)
	orig.ContractText = "mutated"

	got, _ := repo.GetByToken(ctx, "tok")
	if got.ContractText != "X" {
		t.Errorf("stored contract text changed through caller pointer: %q", got.ContractText)
	}
	got.FieldData["k"] = "changed"
	again, _ := repo.GetByID(ctx, "a1")
	if again.FieldData["k"] != "v" {
		t.Error("field data changed through returned copy")
	}
	if missing, _ := repo.GetByToken(ctx, "nope"); missing != nil {
		t.Error("unknown token should return nil")
	}
}

func TestAgreements_ListByCreatorNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := New().Agreements()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_ = repo.Create(ctx, &agreementdomain.Agreement{ID: fmt.Sprintf("a%d", i), CreatorID: "c1", CreatedAt: base.Add(time.Duration(i) * time.Minute)})
	}
	_ = repo.Create(ctx, &agreementdomain.Agreement{ID: "other", CreatorID: "c2", CreatedAt: base})

	list, _ := repo.ListByCreator(ctx, "c1")
	if len(list) != 3 || list[0].ID != "a2" || list[2].ID != "a0" {
		ids := make([]string, len(list))
		for i, a := range list {
			ids[i] = a.ID
		}
		t.Errorf("ListByCreator = %v, want [a2 a1 a0]", ids)
	}
}

func TestChallenges_GetLatestAndInvalidate(t *testing.T) {
	ctx := context.Background()
	repo := New().Challenges()
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	_ = repo.Create(ctx, &otpdomain.Challenge{ID: "c1", Email: "bob@example.com", AgreementID: "a1", CreatedAt: t0})
	_ = repo.Create(ctx, &otpdomain.Challenge{ID: "c2", Email: "bob@example.com", AgreementID: "a1", CreatedAt: t0.Add(time.Minute)})

	latest, _ := repo.GetLatest(ctx, "bob@example.com", "a1", false)
	if latest == nil || latest.ID != "c2" {
		t.Fatalf("GetLatest = %+v, want c2", latest)
	}
	_ = repo.Invalidate(ctx, "c2")
	latest, _ = repo.GetLatest(ctx, "bob@example.com", "a1", false)
	if latest == nil || latest.ID != "c1" {
		t.Fatalf("GetLatest after invalidate = %+v, want c1", latest)
	}
	if ok, _ := repo.MarkVerified(ctx, "c1"); !ok {
		t.Fatal("MarkVerified should succeed once")
	}
	if ok, _ := repo.MarkVerified(ctx, "c1"); ok {
		t.Error("MarkVerified should report false the second time")
	}
	if got, _ := repo.GetLatest(ctx, "bob@example.com", "a1", true); got != nil {
		t.Errorf("unverified-only lookup = %+v, want nil", got)
	}
	_ = repo.Invalidate(ctx, "c1")
	if got, _ := repo.GetLatest(ctx, "bob@example.com", "a1", false); got == nil || got.ID != "c1" {
		t.Error("verified challenge must not be invalidated")
	}
}

func TestChallenges_ConcurrentIncrementsAreExact(t *testing.T) {
	ctx := context.Background()
	repo := New().Challenges()
	_ = repo.Create(ctx, &otpdomain.Challenge{ID: "c1"})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = repo.IncrementAttempts(ctx, "c1")
		}()
	}
	wg.Wait()
	n, _ := repo.IncrementAttempts(ctx, "c1")
	if n != 51 {
		t.Errorf("attempts = %d, want 51", n)
	}
	if _, err := repo.IncrementAttempts(ctx, "missing"); err == nil {
		t.Error("IncrementAttempts on a missing challenge should fail")
	}
}

func TestSignatures_Duplicate(t *testing.T) {
	ctx := context.Background()
	repo := New().Signatures()
	ev := &signaturedomain.Event{ID: "s1", Fields: receipt.Fields{AgreementID: "a1"}}
	if err := repo.Create(ctx, ev); err != nil {
		t.Fatalf("Create: %v", err)
	}
	err := repo.Create(ctx, &signaturedomain.Event{ID: "s2", Fields: receipt.Fields{AgreementID: "a1"}})
	if !errors.Is(err, signaturerepo.ErrDuplicate) {
		t.Errorf("second Create error = %v, want ErrDuplicate", err)
	}
	got, _ := repo.GetByAgreementID(ctx, "a1")
	if got == nil || got.ID != "s1" {
		t.Errorf("stored event = %+v, want s1", got)
	}
}

func TestAuditTrail_AppendOnlyPerAgreement(t *testing.T) {
	ctx := context.Background()
	repo := New().AuditTrail()
	_ = repo.Create(ctx, &auditdomain.AuditLog{ID: "1", AgreementID: "a1", EventType: auditdomain.EventCreated})
	_ = repo.Create(ctx, &auditdomain.AuditLog{ID: "2", AgreementID: "a2", EventType: auditdomain.EventCreated})
	_ = repo.Create(ctx, &auditdomain.AuditLog{ID: "3", AgreementID: "a1", EventType: auditdomain.EventViewed})

	list, _ := repo.ListByAgreement(ctx, "a1")
	if len(list) != 2 || list[0].EventType != auditdomain.EventCreated || list[1].EventType != auditdomain.EventViewed {
		t.Errorf("ListByAgreement = %+v", list)
	}
}
