package wizard

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/VeriScreen/OrderFlow/internal/backend"
	"github.com/VeriScreen/OrderFlow/internal/cache"
	"github.com/VeriScreen/OrderFlow/internal/models"
	"github.com/VeriScreen/OrderFlow/internal/notify"
	"github.com/VeriScreen/OrderFlow/internal/store"
	"github.com/VeriScreen/OrderFlow/internal/util"
)

// companyListKey is the cache key for the upstream company list.
const companyListKey = "companies"

// Opts holds configuration options for the Orchestrator.
type Opts struct {
	Notifier notify.Service
}

// Option defines a configuration option for the Orchestrator.
type Option func(*Opts)

// WithNotifier enables scheduling-link SMS dispatch through the given service.
func WithNotifier(n notify.Service) Option {
	return func(o *Opts) { o.Notifier = n }
}

// Orchestrator owns wizard sessions and coordinates the lab-backend calls
// tied to step transitions. All draft mutations flow through it.
type Orchestrator struct {
	st        store.Store
	backend   backend.Client
	companies *cache.CompanyCache
	notifier  notify.Service

	mu         sync.Mutex
	submitting map[string]bool
}

// NewOrchestrator creates an Orchestrator with the given dependencies.
func NewOrchestrator(st store.Store, bc backend.Client, companies *cache.CompanyCache, opts ...Option) *Orchestrator {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("Creating wizard Orchestrator", "notifier_set", cfg.Notifier != nil)
	return &Orchestrator{
		st:         st,
		backend:    bc,
		companies:  companies,
		notifier:   cfg.Notifier,
		submitting: make(map[string]bool),
	}
}

// SiteOutcome is the result of a site-information request.
type SiteOutcome struct {
	LinkDispatched bool                    `json:"link_dispatched"`
	Message        string                  `json:"message,omitempty"`
	CaseNumber     string                  `json:"case_number,omitempty"`
	Sites          []models.CollectionSite `json:"sites,omitempty"`
}

// SubmitOutcome is the result of a successful final submission.
type SubmitOutcome struct {
	Message    string `json:"message"`
	CaseNumber string `json:"case_number"`
}

// CreateSession starts a fresh wizard session, optionally seeded from a
// historical result row when the user reschedules a past order.
func (o *Orchestrator) CreateSession(ctx context.Context, req models.CreateSessionRequest) (*models.WizardSession, error) {
	now := time.Now()
	s := models.WizardSession{
		ID:        util.NewSessionID(),
		Status:    models.SessionActive,
		Seed:      models.SeedUnseeded,
		Draft:     models.NewOrderDraft(util.NewRequestID()),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.Reschedule != nil {
		pf := MapReschedule(*req.Reschedule)
		s.Prefill = &pf
		d := &s.Draft
		d.Participant = pf.Participant
		d.Mode = pf.Mode
		d.LinkEmail = pf.LinkEmail
		d.CCEmail = pf.CCEmail
		// Historical CC values are user values; the auto-seed must not touch them.
		d.CCSeeded = pf.CCEmail != ""
		slog.Info("Orchestrator.CreateSession: seeded from reschedule row", "session", s.ID, "company_name", pf.CompanyName)
	}
	if err := o.st.SaveSession(s); err != nil {
		slog.Error("Orchestrator.CreateSession: save failed", "error", err)
		return nil, err
	}
	slog.Debug("Orchestrator.CreateSession succeeded", "session", s.ID)
	return &s, nil
}

// Get returns a session by ID.
func (o *Orchestrator) Get(ctx context.Context, id string) (*models.WizardSession, error) {
	s, err := o.st.GetSession(id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, models.ErrSessionNotFound
	}
	return s, nil
}

// loadActive fetches a session and rejects mutations on terminal sessions.
func (o *Orchestrator) loadActive(id string) (*models.WizardSession, error) {
	s, err := o.st.GetSession(id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, models.ErrSessionNotFound
	}
	if s.Status.IsTerminal() {
		return nil, models.ErrSessionTerminal
	}
	return s, nil
}

func (o *Orchestrator) save(s *models.WizardSession) error {
	s.UpdatedAt = time.Now()
	return o.st.SaveSession(*s)
}

// Advance validates the current step and moves the session forward.
func (o *Orchestrator) Advance(ctx context.Context, id string) (*models.WizardSession, error) {
	s, err := o.loadActive(id)
	if err != nil {
		return nil, err
	}
	if err := Advance(&s.Draft); err != nil {
		return nil, err
	}
	if err := o.save(s); err != nil {
		return nil, err
	}
	return s, nil
}

// Retreat moves the session back one step without validation.
func (o *Orchestrator) Retreat(ctx context.Context, id string) (*models.WizardSession, error) {
	s, err := o.loadActive(id)
	if err != nil {
		return nil, err
	}
	Retreat(&s.Draft)
	if err := o.save(s); err != nil {
		return nil, err
	}
	return s, nil
}

// Companies returns the upstream company list through the TTL cache.
func (o *Orchestrator) Companies(ctx context.Context) ([]models.Company, error) {
	if companies, ok := o.companies.Get(companyListKey); ok {
		slog.Debug("Orchestrator.Companies: cache hit", "count", len(companies))
		return companies, nil
	}
	companies, err := o.backend.ListCompanies(ctx)
	if err != nil {
		slog.Error("Orchestrator.Companies: backend list failed", "error", err)
		return nil, err
	}
	o.companies.Set(companyListKey, companies)
	slog.Debug("Orchestrator.Companies: fetched from backend", "count", len(companies))
	return companies, nil
}

func (o *Orchestrator) companyByID(ctx context.Context, companyID string) (*models.Company, error) {
	companies, err := o.Companies(ctx)
	if err != nil {
		return nil, err
	}
	for i := range companies {
		if companies[i].ID == companyID {
			return &companies[i], nil
		}
	}
	return nil, fmt.Errorf("company %s not found", companyID)
}

// UpdateOrderInfo applies order-information selections with the cascade
// invariants: company change clears package, reason and DOT agency and
// restarts the prefill seed cycle; package change clears reason and DOT.
func (o *Orchestrator) UpdateOrderInfo(ctx context.Context, id string, upd models.OrderInfoUpdate) (*models.WizardSession, error) {
	s, err := o.loadActive(id)
	if err != nil {
		return nil, err
	}
	d := &s.Draft

	if upd.CompanyID != "" && upd.CompanyID != d.CompanyID {
		company, err := o.companyByID(ctx, upd.CompanyID)
		if err != nil {
			return nil, err
		}
		d.CompanyID = company.ID
		d.SelectedCompanyEmail = DeriveCompanyEmail(*company)
		if d.SelectedCompanyEmail == "" && s.Prefill != nil && IsEmail(s.Prefill.CompanyEmail) {
			d.SelectedCompanyEmail = s.Prefill.CompanyEmail
		}
		d.PackageID = ""
		d.PackageName = ""
		d.OrderReasonID = ""
		d.DOTAgency = ""
		d.CCSeeded = false
		s.Seed = models.SeedSeeding
		ApplyPrefill(s, *company)
		if s.Prefill == nil {
			s.Seed = models.SeedSeeded
		}
		slog.Debug("Orchestrator.UpdateOrderInfo: company selected", "session", id,
			"company_id", company.ID, "derived_email_set", d.SelectedCompanyEmail != "")
	}

	if upd.PackageID != "" && upd.PackageID != d.PackageID {
		if d.CompanyID == "" {
			return nil, models.ErrEmptyCompany
		}
		company, err := o.companyByID(ctx, d.CompanyID)
		if err != nil {
			return nil, err
		}
		var pkg *models.TestPackage
		for i := range company.Packages {
			if company.Packages[i].ID == upd.PackageID {
				pkg = &company.Packages[i]
				break
			}
		}
		if pkg == nil {
			return nil, fmt.Errorf("package %s does not belong to company %s", upd.PackageID, d.CompanyID)
		}
		d.PackageID = pkg.ID
		d.PackageName = pkg.Name
		d.OrderReasonID = ""
		d.DOTAgency = ""
	}

	if upd.OrderReasonID != "" && upd.OrderReasonID != d.OrderReasonID {
		if d.CompanyID == "" {
			return nil, models.ErrEmptyCompany
		}
		company, err := o.companyByID(ctx, d.CompanyID)
		if err != nil {
			return nil, err
		}
		found := false
		for _, r := range company.OrderReasons {
			if r.ID == upd.OrderReasonID {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("order reason %s does not belong to company %s", upd.OrderReasonID, d.CompanyID)
		}
		d.OrderReasonID = upd.OrderReasonID
	}

	if upd.DOTAgency != "" {
		if !models.IsDOTPackageName(d.PackageName) {
			return nil, models.ErrDOTAgencyNotAllowed
		}
		d.DOTAgency = upd.DOTAgency
	}

	d.Revision++
	if err := o.save(s); err != nil {
		return nil, err
	}
	return s, nil
}

// UpdateParticipant replaces the participant fields of the draft.
func (o *Orchestrator) UpdateParticipant(ctx context.Context, id string, upd models.ParticipantUpdate) (*models.WizardSession, error) {
	if err := upd.Validate(); err != nil {
		return nil, err
	}
	s, err := o.loadActive(id)
	if err != nil {
		return nil, err
	}
	if upd.Participant.Observed == "" {
		upd.Participant.Observed = "0"
	}
	s.Draft.Participant = upd.Participant
	s.Draft.Revision++
	if err := o.save(s); err != nil {
		return nil, err
	}
	return s, nil
}

// UpdateCommunication sets the communication mode, enforcing mutual
// exclusivity and the one-shot donor-pass CC seed.
func (o *Orchestrator) UpdateCommunication(ctx context.Context, id string, upd models.CommunicationUpdate) (*models.WizardSession, error) {
	if err := upd.Validate(); err != nil {
		return nil, err
	}
	s, err := o.loadActive(id)
	if err != nil {
		return nil, err
	}
	d := &s.Draft

	switch upd.Mode {
	case models.ModeSchedulingLink:
		if upd.LinkEmail != "" && !IsEmail(upd.LinkEmail) {
			return nil, fmt.Errorf("invalid scheduling link email: %s", upd.LinkEmail)
		}
		d.Mode = models.ModeSchedulingLink
		d.LinkEmail = upd.LinkEmail
		// Activating the link clears the donor pass recipients.
		d.CCEmail = ""
	case models.ModeDonorPass:
		if upd.CCEmail != nil {
			if err := ValidateCCList(*upd.CCEmail); err != nil {
				return nil, err
			}
		}
		d.Mode = models.ModeDonorPass
		d.LinkEmail = ""
		switch {
		case upd.CCEmail != nil:
			// Explicit value, including an empty string to clear the list;
			// the seed never overrides a user edit.
			d.CCEmail = *upd.CCEmail
			d.CCSeeded = true
		case d.CCEmail == "" && !d.CCSeeded && d.SelectedCompanyEmail != "":
			// Seed the CC list with the derived company email exactly once.
			d.CCEmail = d.SelectedCompanyEmail
			d.CCSeeded = true
			slog.Debug("Orchestrator.UpdateCommunication: cc seeded from company email", "session", id)
		}
	case models.ModeNone:
		d.Mode = models.ModeNone
		d.LinkEmail = ""
		d.CCEmail = ""
	}

	d.Revision++
	if err := o.save(s); err != nil {
		return nil, err
	}
	return s, nil
}

// formData assembles the backend form payload from the draft.
func formData(d *models.OrderDraft) backend.FormData {
	return backend.FormData{
		Participant: d.Participant,
		SendLink:    d.Mode == models.ModeSchedulingLink,
		DonorPass:   d.Mode == models.ModeDonorPass,
		Email:       d.LinkEmail,
		CCEmail:     d.CCEmail,
	}
}

// RequestSiteInformation posts the assembled order data to the lab backend.
// In scheduling-link mode the backend dispatches the link out-of-band and
// the session is hard-reset; otherwise the candidate site list and case
// number are stored for the site-selection step. Backend failures leave the
// draft untouched so the user can retry.
func (o *Orchestrator) RequestSiteInformation(ctx context.Context, id string) (*SiteOutcome, error) {
	s, err := o.loadActive(id)
	if err != nil {
		return nil, err
	}
	d := &s.Draft
	if err := ValidateStep(d, models.StepOrderInfo); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAdvanceBlocked, err)
	}
	if err := ValidateStep(d, models.StepParticipant); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAdvanceBlocked, err)
	}

	req := backend.SiteInformationRequest{
		CompanyID:     d.CompanyID,
		PackageID:     d.PackageID,
		OrderReasonID: d.OrderReasonID,
		DOTAgency:     d.DOTAgency,
		FormData:      formData(d),
	}
	rev := d.Revision
	linkMode := d.Mode == models.ModeSchedulingLink
	phone := d.Participant.Phone1

	res, err := o.backend.GetSiteInformation(ctx, req)
	if err != nil {
		slog.Error("Orchestrator.RequestSiteInformation: backend call failed", "session", id, "error", err)
		return nil, err
	}

	// The session may have moved on while the request was in flight; a
	// response against an outdated draft is discarded, not applied.
	s, err = o.loadActive(id)
	if err != nil {
		return nil, err
	}
	if s.Draft.Revision != rev {
		slog.Warn("Orchestrator.RequestSiteInformation: discarding stale response", "session", id,
			"requested_revision", rev, "current_revision", s.Draft.Revision)
		return nil, ErrStaleSession
	}

	if linkMode {
		o.dispatchLink(ctx, phone, res.Link)
		o.hardReset(s)
		if err := o.save(s); err != nil {
			return nil, err
		}
		message := res.Message
		if message == "" {
			message = "Scheduling link sent successfully"
		}
		slog.Info("Orchestrator.RequestSiteInformation: link dispatched, session reset", "session", id)
		return &SiteOutcome{LinkDispatched: true, Message: message}, nil
	}

	if res.CaseNumber == "" {
		return nil, fmt.Errorf("backend returned no case number")
	}
	d = &s.Draft
	d.CaseNumber = res.CaseNumber
	d.CandidateSites = res.Sites
	d.SelectedSiteID = ""
	d.SelectedSiteDetails = nil
	d.FinalSelectedSite = nil
	d.Revision++
	if err := o.save(s); err != nil {
		return nil, err
	}
	slog.Info("Orchestrator.RequestSiteInformation: sites received", "session", id,
		"case_number", res.CaseNumber, "site_count", len(res.Sites))
	return &SiteOutcome{CaseNumber: res.CaseNumber, Sites: res.Sites, Message: res.Message}, nil
}

// dispatchLink sends the scheduling link by SMS when a notifier is
// configured and the backend handed the link back. Best effort: a failed
// SMS never fails the wizard operation.
func (o *Orchestrator) dispatchLink(ctx context.Context, phone, link string) {
	if o.notifier == nil || link == "" || phone == "" {
		return
	}
	if err := o.notifier.SendSchedulingLink(ctx, phone, link); err != nil {
		slog.Error("Orchestrator.dispatchLink: sms dispatch failed", "error", err)
	}
}

// ResubmitWithCorrectedZip re-queries collection sites with a corrected ZIP,
// reusing the already-issued case number so the backend refines the same
// order-in-progress instead of opening a new case.
func (o *Orchestrator) ResubmitWithCorrectedZip(ctx context.Context, id string, req models.PincodeRequest) (*SiteOutcome, error) {
	if err := ValidateZip(req.Zip); err != nil {
		return nil, err
	}
	s, err := o.loadActive(id)
	if err != nil {
		return nil, err
	}
	if s.Draft.CaseNumber == "" {
		return nil, models.ErrMissingCaseNumber
	}
	rev := s.Draft.Revision
	caseNumber := s.Draft.CaseNumber

	sites, err := o.backend.HandleNewPincode(ctx, caseNumber, req.Zip)
	if err != nil {
		slog.Error("Orchestrator.ResubmitWithCorrectedZip: backend call failed", "session", id, "error", err)
		return nil, err
	}

	s, err = o.loadActive(id)
	if err != nil {
		return nil, err
	}
	if s.Draft.Revision != rev {
		slog.Warn("Orchestrator.ResubmitWithCorrectedZip: discarding stale response", "session", id)
		return nil, ErrStaleSession
	}
	d := &s.Draft
	d.Participant.Zip = req.Zip
	d.CandidateSites = sites
	d.SelectedSiteID = ""
	d.SelectedSiteDetails = nil
	d.FinalSelectedSite = nil
	d.Revision++
	if err := o.save(s); err != nil {
		return nil, err
	}
	slog.Info("Orchestrator.ResubmitWithCorrectedZip: sites refreshed", "session", id,
		"case_number", caseNumber, "site_count", len(sites))
	return &SiteOutcome{CaseNumber: caseNumber, Sites: sites}, nil
}

// SelectSite stores the chosen candidate site. A final selection also
// records the committed copy used at submission time, so the user can
// preview sites without committing.
func (o *Orchestrator) SelectSite(ctx context.Context, id string, sel models.SiteSelection) (*models.WizardSession, error) {
	if err := sel.Validate(); err != nil {
		return nil, err
	}
	s, err := o.loadActive(id)
	if err != nil {
		return nil, err
	}
	d := &s.Draft
	var site *models.CollectionSite
	for i := range d.CandidateSites {
		if d.CandidateSites[i].ID == sel.SiteID {
			site = &d.CandidateSites[i]
			break
		}
	}
	if site == nil {
		return nil, fmt.Errorf("site %s is not in the candidate list", sel.SiteID)
	}
	chosen := *site
	d.SelectedSiteID = chosen.ID
	d.SelectedSiteDetails = &chosen
	if sel.Final {
		final := chosen
		d.FinalSelectedSite = &final
	}
	d.Revision++
	if err := o.save(s); err != nil {
		return nil, err
	}
	return s, nil
}

// SubmitFinalOrder posts the fully assembled order. The session's request ID
// rides along as an idempotency key and an in-flight guard rejects
// re-entrant submits for the same session. On success the session becomes
// terminal and its draft is hard-reset; on failure the draft is untouched
// for retry.
func (o *Orchestrator) SubmitFinalOrder(ctx context.Context, id string) (*SubmitOutcome, error) {
	o.mu.Lock()
	if o.submitting[id] {
		o.mu.Unlock()
		return nil, models.ErrSubmitInFlight
	}
	o.submitting[id] = true
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		delete(o.submitting, id)
		o.mu.Unlock()
	}()

	s, err := o.loadActive(id)
	if err != nil {
		return nil, err
	}
	d := &s.Draft
	for _, step := range []models.Step{models.StepOrderInfo, models.StepParticipant, models.StepSite} {
		if err := ValidateStep(d, step); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrAdvanceBlocked, err)
		}
	}

	req := backend.SubmitOrderRequest{
		CompanyID:         d.CompanyID,
		PackageID:         d.PackageID,
		OrderReasonID:     d.OrderReasonID,
		CaseNumber:        d.CaseNumber,
		RequestID:         d.RequestID,
		FormData:          formData(d),
		FinalSelectedSite: d.FinalSelectedSite,
	}
	caseNumber := d.CaseNumber
	participantName := strings.TrimSpace(d.Participant.FirstName + " " + d.Participant.LastName)
	companyID, packageID := d.CompanyID, d.PackageID

	res, err := o.backend.SubmitOrder(ctx, req)
	if err != nil {
		slog.Error("Orchestrator.SubmitFinalOrder: backend call failed", "session", id, "error", err)
		return nil, err
	}

	receipt := models.OrderReceipt{
		CaseNumber:      caseNumber,
		CompanyID:       companyID,
		PackageID:       packageID,
		ParticipantName: participantName,
		SubmittedAt:     time.Now(),
	}
	if err := o.st.AddOrderReceipt(receipt); err != nil {
		slog.Error("Orchestrator.SubmitFinalOrder: failed to record receipt", "error", err, "case_number", caseNumber)
	}

	s.Status = models.SessionSubmitted
	o.hardReset(s)
	if err := o.save(s); err != nil {
		return nil, err
	}
	slog.Info("Orchestrator.SubmitFinalOrder succeeded", "session", id, "case_number", caseNumber)
	return &SubmitOutcome{Message: res.Message, CaseNumber: caseNumber}, nil
}

// HardReset restores the draft to its documented defaults, rotates the
// idempotency request ID and invalidates the company list cache. Idempotent.
func (o *Orchestrator) HardReset(ctx context.Context, id string) (*models.WizardSession, error) {
	s, err := o.st.GetSession(id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, models.ErrSessionNotFound
	}
	o.hardReset(s)
	if err := o.save(s); err != nil {
		return nil, err
	}
	slog.Info("Orchestrator.HardReset succeeded", "session", id)
	return s, nil
}

// hardReset is the terminal-success cleanup shared by link dispatch, final
// submission and the explicit reset endpoint: draft back to defaults, fresh
// request ID, prefill dropped, company list cache cleared.
func (o *Orchestrator) hardReset(s *models.WizardSession) {
	s.Draft = models.NewOrderDraft(util.NewRequestID())
	s.Seed = models.SeedUnseeded
	s.Prefill = nil
	o.companies.InvalidateAll()
}

// Orders returns receipts of submitted orders, newest last.
func (o *Orchestrator) Orders(ctx context.Context) ([]models.OrderReceipt, error) {
	return o.st.GetOrderReceipts()
}
