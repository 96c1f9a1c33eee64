package models

import (
	"encoding/json"
	"testing"
)

func TestIsDOTPackageName(t *testing.T) {
	dot := []string{
		"DOT PANEL",
		"dot panel",
		"Dot Panel + Alcohol",
		"  DOT BAT  ",
		"DOT PHYSICAL",
	}
	for _, name := range dot {
		if !IsDOTPackageName(name) {
			t.Errorf("expected %q to be a DOT package", name)
		}
	}

	nonDOT := []string{
		"",
		"5 Panel Urine",
		"DOT",
		"DOT PANEL EXTENDED",
		"NON-DOT PANEL",
	}
	for _, name := range nonDOT {
		if IsDOTPackageName(name) {
			t.Errorf("expected %q to not be a DOT package", name)
		}
	}
}

func TestIsValidCommunicationMode(t *testing.T) {
	for _, m := range []CommunicationMode{ModeNone, ModeSchedulingLink, ModeDonorPass} {
		if !IsValidCommunicationMode(m) {
			t.Errorf("expected mode %q to be valid", m)
		}
	}
	if IsValidCommunicationMode("email") {
		t.Error("expected unknown mode to be invalid")
	}
	if IsValidCommunicationMode("") {
		t.Error("expected empty mode to be invalid")
	}
}

func TestSessionStatusIsTerminal(t *testing.T) {
	if SessionActive.IsTerminal() {
		t.Error("active must not be terminal")
	}
	if !SessionSubmitted.IsTerminal() {
		t.Error("submitted must be terminal")
	}
	if SessionAbandoned.IsTerminal() {
		t.Error("abandoned sessions stay resettable")
	}
}

func TestNewOrderDraftDefaults(t *testing.T) {
	d := NewOrderDraft("req-1")
	if d.CurrentStep != StepOrderInfo || d.MaxReachedStep != StepOrderInfo {
		t.Errorf("unexpected initial steps: current %d, max %d", d.CurrentStep, d.MaxReachedStep)
	}
	if d.Mode != ModeNone {
		t.Errorf("expected mode none, got %q", d.Mode)
	}
	if d.Participant.Observed != "0" {
		t.Errorf("expected observed default %q, got %q", "0", d.Participant.Observed)
	}
	if d.RequestID != "req-1" {
		t.Errorf("expected request ID to be stored, got %q", d.RequestID)
	}
	if d.Revision != 0 {
		t.Errorf("expected zero revision, got %d", d.Revision)
	}
}

func TestCompanyUnmarshalKeepsRaw(t *testing.T) {
	data := []byte(`{
		"id": "c1",
		"name": "Acme Logistics",
		"contactEmail": "ops@acme.example",
		"billing": {"inbox": "billing@acme.example"},
		"packages": [{"id": "p1", "name": "5 Panel Urine"}]
	}`)
	var c Company
	if err := json.Unmarshal(data, &c); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if c.ID != "c1" || c.ContactEmail != "ops@acme.example" {
		t.Errorf("typed fields did not decode: %+v", c)
	}
	if len(c.Packages) != 1 {
		t.Errorf("packages did not decode: %+v", c.Packages)
	}
	if c.Raw == nil {
		t.Fatal("expected Raw to be populated")
	}
	if _, ok := c.Raw["billing"]; !ok {
		t.Error("expected schema-unknown fields to survive in Raw")
	}
}

func TestAPIResponseBuilders(t *testing.T) {
	ok := Success(map[string]string{"id": "sess_1"})
	if ok.Status != string(APIStatusOK) || ok.Result == nil {
		t.Errorf("unexpected success response: %+v", ok)
	}

	withMsg := SuccessWithMessage("Order submitted successfully", nil)
	if withMsg.Message != "Order submitted successfully" {
		t.Errorf("unexpected message: %+v", withMsg)
	}

	errResp := Error("something broke")
	if errResp.Status != string(APIStatusError) || errResp.Message != "something broke" {
		t.Errorf("unexpected error response: %+v", errResp)
	}

	built := NewAPIResponseBuilder().
		WithStatus(APIStatusOK).
		WithMessage("hi").
		WithResult(42).
		Build()
	if built.Status != "ok" || built.Message != "hi" || built.Result != 42 {
		t.Errorf("builder output mismatch: %+v", built)
	}
}

func TestParticipantUpdateValidate(t *testing.T) {
	upd := ParticipantUpdate{Participant: Participant{FirstName: "Jordan", Observed: "1"}}
	if err := upd.Validate(); err != nil {
		t.Errorf("expected valid update, got %v", err)
	}

	upd.Participant.Observed = "yes"
	if err := upd.Validate(); err == nil {
		t.Error("expected error for non-binary observed value")
	}

	long := make([]byte, MaxParticipantFieldLength+1)
	for i := range long {
		long[i] = 'a'
	}
	upd = ParticipantUpdate{Participant: Participant{FirstName: string(long)}}
	if err := upd.Validate(); err == nil {
		t.Error("expected error for oversized field")
	}
}

func TestCommunicationUpdateValidate(t *testing.T) {
	cc := "a@b.com"
	upd := CommunicationUpdate{Mode: ModeDonorPass, CCEmail: &cc}
	if err := upd.Validate(); err != nil {
		t.Errorf("expected valid update, got %v", err)
	}

	upd.Mode = "pigeon"
	if err := upd.Validate(); err != ErrInvalidMode {
		t.Errorf("expected ErrInvalidMode, got %v", err)
	}

	long := make([]byte, MaxCCListLength+1)
	for i := range long {
		long[i] = 'a'
	}
	oversized := string(long)
	upd = CommunicationUpdate{Mode: ModeDonorPass, CCEmail: &oversized}
	if err := upd.Validate(); err == nil {
		t.Error("expected error for oversized cc list")
	}
}

func TestSiteSelectionValidate(t *testing.T) {
	sel := SiteSelection{}
	if err := sel.Validate(); err != ErrNoSiteSelected {
		t.Errorf("expected ErrNoSiteSelected, got %v", err)
	}
	sel.SiteID = "s1"
	if err := sel.Validate(); err != nil {
		t.Errorf("expected valid selection, got %v", err)
	}
}
