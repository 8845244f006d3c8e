// Package templates holds the agreement template catalog and renders contract text from creator input.
package templates

import "text/template"

// Version is the template version stamped on every agreement and bound into its receipt.
const Version = 1

// FieldType is the input kind of a template field.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldTextarea FieldType = "textarea"
	FieldNumber   FieldType = "number"
	FieldDate     FieldType = "date"
)

// Field describes one creator input.
type Field struct {
	Key      string    `json:"key"`
	Label    string    `json:"label"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required"`
}

// Template is one catalog entry.
type Template struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	Jurisdiction string  `json:"jurisdiction"`
	Fields       []Field `json:"fields"`
	body         *template.Template
}

var funcs = template.FuncMap{"money": money}

func mustParse(id, text string) *template.Template {
	return template.Must(template.New(id).Funcs(funcs).Option("missingkey=zero").Parse(text))
}

const disclaimer = "This document is generated for informational purposes and does not constitute legal advice."

var catalog = []*Template{
	{
		ID:           "bill_of_sale",
		Title:        "Bill of Sale",
		Description:  "Transfer ownership of personal property (e.g., electronics, furniture, vehicles) between two parties.",
		Jurisdiction: "Canada",
		Fields: []Field{
			{Key: "seller_name", Label: "Seller Full Legal Name", Type: FieldText, Required: true},
			{Key: "buyer_name", Label: "Buyer Full Legal Name", Type: FieldText, Required: true},
			{Key: "item_description", Label: "Item Description", Type: FieldTextarea, Required: true},
			{Key: "sale_price", Label: "Sale Price (CAD)", Type: FieldNumber, Required: true},
			{Key: "condition", Label: "Item Condition", Type: FieldText},
		},
		body: mustParse("bill_of_sale", `BILL OF SALE

This Bill of Sale ("Agreement") is entered into on {{.Date}} between:

SELLER: {{.F.seller_name}} (hereinafter "Seller")
BUYER: {{.F.buyer_name}} (hereinafter "Buyer")

1. SALE OF GOODS
The Seller agrees to sell, and the Buyer agrees to purchase, the following personal property:

Item Description: {{.F.item_description}}
{{if .F.condition}}Condition: {{.F.condition}}{{else}}Condition: As-is{{end}}

2. PURCHASE PRICE
The total purchase price is CAD ${{money .F.sale_price}} (Canadian Dollars), payable upon execution of this Agreement.

3. TRANSFER OF OWNERSHIP
Upon receipt of the full purchase price, the Seller transfers all rights, title, and interest in the above-described property to the Buyer. The property is sold "as-is" unless otherwise specified.

4. WARRANTIES
The Seller warrants that they are the lawful owner of the property and have the right to sell it. The Seller warrants that the property is free and clear of all liens, claims, and encumbrances.

5. GOVERNING LAW
This Agreement shall be governed by and construed in accordance with the laws of the Province in which it is executed and the federal laws of Canada applicable therein.

6. ENTIRE AGREEMENT
This Agreement constitutes the entire agreement between the parties and supersedes all prior negotiations, representations, or agreements relating to this subject matter.

7. DISCLAIMER
`+disclaimer+` For complex transactions, consult a licensed legal professional.

AGREED AND SIGNED ELECTRONICALLY via Handshake.`),
	},
	{
		ID:           "roommate_agreement",
		Title:        "Roommate Agreement",
		Description:  "Define shared living arrangements, responsibilities, and financial obligations between roommates.",
		Jurisdiction: "Canada",
		Fields: []Field{
			{Key: "party_a_name", Label: "Party A Full Legal Name", Type: FieldText, Required: true},
			{Key: "party_b_name", Label: "Party B Full Legal Name", Type: FieldText, Required: true},
			{Key: "address", Label: "Shared Address", Type: FieldTextarea, Required: true},
			{Key: "monthly_rent", Label: "Total Monthly Rent (CAD)", Type: FieldNumber, Required: true},
			{Key: "rent_split", Label: "Rent Split Description", Type: FieldText, Required: true},
			{Key: "move_in_date", Label: "Move-in Date", Type: FieldDate, Required: true},
			{Key: "term_months", Label: "Term (Months)", Type: FieldNumber, Required: true},
		},
		body: mustParse("roommate_agreement", `ROOMMATE AGREEMENT

This Roommate Agreement ("Agreement") is entered into on {{.Date}} between:

PARTY A: {{.F.party_a_name}}
PARTY B: {{.F.party_b_name}}

1. PREMISES
The parties agree to share the following residential premises:
{{.F.address}}

2. TERM
This Agreement commences on {{.F.move_in_date}} and continues for {{.F.term_months}} month(s), unless terminated earlier by mutual written consent or as permitted by applicable provincial tenancy law.

3. RENT AND FINANCIAL OBLIGATIONS
Total Monthly Rent: CAD ${{money .F.monthly_rent}}
Rent Split: {{.F.rent_split}}
Rent is due on the 1st of each month. Late payments may incur additional costs as agreed between the parties.

4. SHARED RESPONSIBILITIES
Both parties agree to maintain the premises in reasonable condition, share common-area cleaning duties equitably, and respect each other's quiet enjoyment of the space.

5. UTILITIES AND EXPENSES
Unless otherwise agreed in writing, utilities and shared household expenses shall be split equally between the parties.

6. TERMINATION
Either party may terminate this Agreement by providing at least 30 days' written notice to the other party, subject to any overriding obligations under the applicable provincial residential tenancy legislation.

7. GOVERNING LAW
This Agreement shall be governed by the laws of the Province in which the premises are located and the federal laws of Canada applicable therein.

8. DISCLAIMER
`+disclaimer+` For complex arrangements, consult a licensed legal professional.

AGREED AND SIGNED ELECTRONICALLY via Handshake.`),
	},
	{
		ID:           "proof_of_payment",
		Title:        "Proof of Payment",
		Description:  "Acknowledge receipt of a payment between two parties (e.g., personal loan repayment, deposit).",
		Jurisdiction: "Canada",
		Fields: []Field{
			{Key: "payer_name", Label: "Payer Full Legal Name", Type: FieldText, Required: true},
			{Key: "payee_name", Label: "Payee Full Legal Name", Type: FieldText, Required: true},
			{Key: "amount", Label: "Amount Paid (CAD)", Type: FieldNumber, Required: true},
			{Key: "payment_method", Label: "Payment Method", Type: FieldText, Required: true},
			{Key: "purpose", Label: "Purpose / Description", Type: FieldTextarea, Required: true},
		},
		body: mustParse("proof_of_payment", `PROOF OF PAYMENT

This Proof of Payment ("Acknowledgement") is issued on {{.Date}}.

PAYER: {{.F.payer_name}}
PAYEE: {{.F.payee_name}}

1. PAYMENT DETAILS
Amount: CAD ${{money .F.amount}} (Canadian Dollars)
Payment Method: {{.F.payment_method}}
Purpose: {{.F.purpose}}

2. ACKNOWLEDGEMENT
The Payee acknowledges receipt of the above-stated amount from the Payer for the purpose described. This acknowledgement serves as a record that the specified payment was made and received.

3. NO FURTHER OBLIGATION
Unless otherwise agreed in a separate written agreement, this payment satisfies the obligation described above in full. If partial payment, the remaining balance and terms should be documented separately.

4. GOVERNING LAW
This Acknowledgement shall be governed by the laws of the Province in which it is executed and the federal laws of Canada applicable therein.

5. DISCLAIMER
`+disclaimer+` Consult a licensed legal professional for complex financial matters.

ACKNOWLEDGED AND SIGNED ELECTRONICALLY via Handshake.`),
	},
}

var byID = func() map[string]*Template {
	m := make(map[string]*Template, len(catalog))
	for _, t := range catalog {
		m[t.ID] = t
	}
	return m
}()
