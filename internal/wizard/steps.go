// Package wizard implements the order-creation wizard: step navigation,
// cascading selections, communication-mode exclusivity, reschedule prefill
// and the orchestration of lab-backend calls tied to step transitions.
package wizard

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/VeriScreen/OrderFlow/internal/models"
)

// Error variables for step navigation.
var (
	ErrAdvanceBlocked = errors.New("current step is incomplete")
	ErrAtLastStep     = errors.New("already at the last step")
	ErrStaleSession   = errors.New("session changed while the request was in flight")
)

var zipRegex = regexp.MustCompile(`^\d{5}$`)

// ValidateZip checks the 5-digit ZIP shape used by the site lookup.
func ValidateZip(zip string) error {
	if !zipRegex.MatchString(zip) {
		return models.ErrInvalidZip
	}
	return nil
}

// ValidateStep checks whether the given step's required fields are complete.
// It returns nil when the step permits advancing.
func ValidateStep(d *models.OrderDraft, step models.Step) error {
	switch step {
	case models.StepOrderInfo:
		return validateOrderInfo(d)
	case models.StepParticipant:
		return validateParticipant(d)
	case models.StepSite:
		return validateSite(d)
	case models.StepReview:
		// Review has no fields of its own; submission is its exit.
		return nil
	default:
		return fmt.Errorf("unknown step %d", step)
	}
}

func validateOrderInfo(d *models.OrderDraft) error {
	if d.CompanyID == "" {
		return models.ErrEmptyCompany
	}
	if d.PackageID == "" {
		return models.ErrEmptyPackage
	}
	if d.OrderReasonID == "" {
		return models.ErrEmptyOrderReason
	}
	if models.IsDOTPackageName(d.PackageName) && d.DOTAgency == "" {
		return models.ErrMissingDOTAgency
	}
	return nil
}

func validateParticipant(d *models.OrderDraft) error {
	p := &d.Participant
	switch {
	case p.FirstName == "":
		return errors.New("first name is required")
	case p.LastName == "":
		return errors.New("last name is required")
	case p.DOB == "":
		return errors.New("date of birth is required")
	case p.Phone1 == "":
		return errors.New("primary phone is required")
	case p.Address == "":
		return errors.New("address is required")
	case p.City == "":
		return errors.New("city is required")
	case p.State == "":
		return errors.New("state is required")
	}
	if err := ValidateZip(p.Zip); err != nil {
		return err
	}
	switch d.Mode {
	case models.ModeNone:
		return errors.New("communication mode must be selected")
	case models.ModeSchedulingLink:
		if !IsEmail(d.LinkEmail) {
			return errors.New("a valid email is required for the scheduling link")
		}
	case models.ModeDonorPass:
		if invalid := InvalidCCTokens(d.CCEmail); len(invalid) > 0 {
			return ccError(invalid)
		}
	}
	return nil
}

func validateSite(d *models.OrderDraft) error {
	if d.CaseNumber == "" {
		return models.ErrMissingCaseNumber
	}
	if d.FinalSelectedSite == nil {
		return models.ErrNoSiteSelected
	}
	return nil
}

// Advance moves the draft forward one step after validating the current
// step. MaxReachedStep extends only when the draft passes it.
func Advance(d *models.OrderDraft) error {
	if err := ValidateStep(d, d.CurrentStep); err != nil {
		slog.Debug("wizard.Advance blocked", "step", d.CurrentStep, "error", err)
		return fmt.Errorf("%w: %w", ErrAdvanceBlocked, err)
	}
	if d.CurrentStep >= models.TotalSteps {
		return ErrAtLastStep
	}
	atFrontier := d.CurrentStep == d.MaxReachedStep
	d.CurrentStep++
	if atFrontier {
		d.MaxReachedStep++
	}
	d.Revision++
	slog.Debug("wizard.Advance succeeded", "step", d.CurrentStep, "max_reached", d.MaxReachedStep)
	return nil
}

// Retreat moves the draft back one step unconditionally, flooring at the
// first step. Going back never requires validation.
func Retreat(d *models.OrderDraft) {
	if d.CurrentStep > models.StepOrderInfo {
		d.CurrentStep--
		d.Revision++
	}
	slog.Debug("wizard.Retreat", "step", d.CurrentStep)
}
