package templates

import (
	"strings"
	"testing"
	"time"

	"handshake/backend/internal/apperror"
)

var testDate = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

func billOfSale() map[string]string {
	return map[string]string{
		"seller_name":      "Alice Seller",
		"buyer_name":       "Bob Buyer",
		"item_description": "Road bike",
		"sale_price":       "450",
	}
}

func TestList(t *testing.T) {
	list := List()
	if len(list) != 3 {
		t.Fatalf("len(List) = %d, want 3", len(list))
	}
	want := []string{"bill_of_sale", "roommate_agreement", "proof_of_payment"}
	for i, id := range want {
		if list[i].ID != id {
			t.Errorf("List[%d] = %q, want %q", i, list[i].ID, id)
		}
		if Get(id) == nil {
			t.Errorf("Get(%q) = nil", id)
		}
	}
	if Get("lease") != nil {
		t.Error("Get of unknown id should be nil")
	}
}

func TestRender_BillOfSale(t *testing.T) {
	r, err := Render("bill_of_sale", billOfSale(), testDate)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	for _, want := range []string{
		"entered into on March 1, 2026",
		"SELLER: Alice Seller",
		"CAD $450.00",
		"Condition: As-is",
	} {
		if !strings.Contains(r.ContractText, want) {
			t.Errorf("contract text missing %q", want)
		}
	}
	if r.TemplateVersion != Version || r.Title != "Bill of Sale" {
		t.Errorf("rendered = %+v", r)
	}
}

func TestRender_OptionalFieldUsed(t *testing.T) {
	f := billOfSale()
	f["condition"] = "  Like new "
	r, err := Render("bill_of_sale", f, testDate)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(r.ContractText, "Condition: Like new\n") {
		t.Error("trimmed condition not rendered")
	}
}

func TestRender_DropsUndeclaredFields(t *testing.T) {
	f := billOfSale()
	f["injected"] = "x"
	r, err := Render("bill_of_sale", f, testDate)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if _, ok := r.Fields["injected"]; ok {
		t.Error("undeclared field kept")
	}
}

func TestRender_Validation(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		mutate  func(map[string]string)
		wantMsg string
	}{
		{"unknown template", "lease", func(map[string]string) {}, "Unknown template: lease"},
		{"missing required", "bill_of_sale", func(f map[string]string) { delete(f, "buyer_name") }, `"Buyer Full Legal Name" is required`},
		{"blank required", "bill_of_sale", func(f map[string]string) { f["seller_name"] = "   " }, `"Seller Full Legal Name" is required`},
		{"non-numeric price", "bill_of_sale", func(f map[string]string) { f["sale_price"] = "four fifty" }, "must be a non-negative number"},
		{"negative price", "bill_of_sale", func(f map[string]string) { f["sale_price"] = "-1" }, "must be a non-negative number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := billOfSale()
			tt.mutate(f)
			_, err := Render(tt.id, f, testDate)
			if apperror.KindOf(err) != apperror.KindValidation {
				t.Fatalf("error kind = %q (%v), want validation", apperror.KindOf(err), err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %v, want containing %q", err, tt.wantMsg)
			}
		})
	}
}

func TestRender_RoommateDateField(t *testing.T) {
	f := map[string]string{
		"party_a_name": "A", "party_b_name": "B", "address": "1 Main St",
		"monthly_rent": "2000", "rent_split": "50/50", "move_in_date": "2026-04-01", "term_months": "12",
	}
	r, err := Render("roommate_agreement", f, testDate)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(r.ContractText, "commences on 2026-04-01 and continues for 12 month(s)") {
		t.Error("term clause not rendered")
	}
	f["move_in_date"] = "April 1st"
	if _, err := Render("roommate_agreement", f, testDate); apperror.KindOf(err) != apperror.KindValidation {
		t.Errorf("bad date error = %v, want validation", err)
	}
}

func TestRender_ProofOfPayment(t *testing.T) {
	f := map[string]string{
		"payer_name": "P", "payee_name": "Q", "amount": "12.5", "payment_method": "e-Transfer", "purpose": "Deposit",
	}
	r, err := Render("proof_of_payment", f, testDate)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(r.ContractText, "Amount: CAD $12.50") {
		t.Error("amount not formatted to two decimals")
	}
}
