package workflow

import "github.com/imcpnet/intranet-workflow/internal/domain/entity"

// Default builds the registry for every entity kind managed by the intranet.
// Rejection terminality differs per kind on purpose: documents and drafts can
// be revised and resubmitted by their author, while a standalone approval
// decision is final once made.
func Default() *Registry {
	return MustRegistry(
		technicalDocumentDefinition(),
		draftDefinition(),
		approvalDefinition(),
		libraryDocumentDefinition(),
		policyDefinition(),
		trainingPlanDefinition(),
		trainingSessionDefinition(),
		vacancyDefinition(),
	)
}

func technicalDocumentDefinition() *Definition {
	reviewers := []entity.Role{entity.RoleQualityManager, entity.RoleAdmin}
	return &Definition{
		Kind:     entity.KindTechnicalDocument,
		States:   []State{StateDraft, StatePendingApproval, StateApproved, StateRejected, StatePublished, StateArchived},
		Initial:  StateDraft,
		Terminal: []State{StateArchived},
		Transitions: []Transition{
			{
				Name: "submit_for_approval", From: StateDraft, To: StatePendingApproval,
				AllowOwner: true, AllowedRoles: []entity.Role{entity.RoleAdmin},
				Effects: []Effect{Notify("quality_manager", "document_submitted")},
			},
			{
				Name: "approve", From: StatePendingApproval, To: StateApproved,
				AllowedRoles: reviewers,
				Effects:      []Effect{Notify("owner", "document_approved")},
			},
			{
				Name: "reject", From: StatePendingApproval, To: StateRejected,
				AllowedRoles: reviewers, RequiredFields: []string{entity.FieldReason},
				Effects: []Effect{Notify("owner", "document_rejected")},
			},
			{
				Name: "publish", From: StateApproved, To: StatePublished,
				AllowedRoles: reviewers,
			},
			{
				Name: "archive", From: StatePublished, To: StateArchived,
				AllowedRoles: []entity.Role{entity.RoleAdmin},
			},
			{
				Name: "revise", From: StateRejected, To: StateDraft,
				AllowOwner: true,
			},
		},
	}
}

func draftDefinition() *Definition {
	approvers := []entity.Role{entity.RoleQualityManager, entity.RoleAdmin}
	return &Definition{
		Kind: entity.KindDraft,
		States: []State{
			StateDraft, StateUnderReview, StatePendingApproval,
			StateApproved, StateApprovedWithObservations, StateRejected, StatePublished,
		},
		Initial:  StateDraft,
		Terminal: []State{StatePublished},
		Transitions: []Transition{
			{
				Name: "submit_for_review", From: StateDraft, To: StateUnderReview,
				AllowOwner: true,
				Effects:    []Effect{Notify("auditor", "draft_submitted")},
			},
			{
				Name: "withdraw", From: StateUnderReview, To: StateDraft,
				AllowOwner: true,
			},
			{
				Name: "request_approval", From: StateUnderReview, To: StatePendingApproval,
				AllowedRoles: []entity.Role{entity.RoleAuditor, entity.RoleQualityManager, entity.RoleAdmin},
			},
			{
				Name: "approve", From: StatePendingApproval, To: StateApproved,
				AllowedRoles: approvers,
				Effects:      []Effect{Notify("owner", "draft_approved")},
			},
			{
				Name: "approve_with_observations", From: StatePendingApproval, To: StateApprovedWithObservations,
				AllowedRoles:   approvers,
				RequiredFields: []string{entity.FieldObservations},
				Effects: []Effect{
					SetField(entity.FieldCorrections, entity.FieldCorrections),
					SetField(entity.FieldDeadline, entity.FieldDeadline),
					Notify("owner", "draft_approved_with_observations"),
				},
			},
			{
				Name: "reject", From: StatePendingApproval, To: StateRejected,
				AllowedRoles:   approvers,
				RequiredFields: []string{entity.FieldReason},
				Effects:        []Effect{Notify("owner", "draft_rejected")},
			},
			{
				Name: "publish", From: StateApproved, To: StatePublished,
				AllowedRoles: approvers,
			},
			{
				Name: "publish", From: StateApprovedWithObservations, To: StatePublished,
				AllowedRoles: approvers,
			},
			{
				Name: "revise", From: StateRejected, To: StateDraft,
				AllowOwner: true,
			},
		},
	}
}

// approvalDefinition models a standalone approval decision. All three
// outcomes are terminal; a fresh approval record is opened for any retry.
func approvalDefinition() *Definition {
	deciders := []entity.Role{entity.RoleQualityManager, entity.RoleBoard, entity.RoleAdmin}
	return &Definition{
		Kind:     entity.KindApproval,
		States:   []State{StatePending, StateApproved, StateApprovedWithObservations, StateRejected},
		Initial:  StatePending,
		Terminal: []State{StateApproved, StateApprovedWithObservations, StateRejected},
		Transitions: []Transition{
			{
				Name: "approve", From: StatePending, To: StateApproved,
				AllowedRoles: deciders,
				Effects:      []Effect{Notify("owner", "approval_granted")},
			},
			{
				Name: "approve_with_observations", From: StatePending, To: StateApprovedWithObservations,
				AllowedRoles:   deciders,
				RequiredFields: []string{entity.FieldObservations, entity.FieldCorrections},
				Effects: []Effect{
					SetField(entity.FieldDeadline, entity.FieldDeadline),
					Notify("owner", "approval_granted_with_observations"),
				},
			},
			{
				Name: "reject", From: StatePending, To: StateRejected,
				AllowedRoles:   deciders,
				RequiredFields: []string{entity.FieldReason},
				Effects:        []Effect{Notify("owner", "approval_rejected")},
			},
		},
	}
}

func libraryDocumentDefinition() *Definition {
	reviewers := []entity.Role{entity.RoleQualityManager, entity.RoleAdmin}
	return &Definition{
		Kind: entity.KindLibraryDocument,
		States: []State{
			StateDraft, StatePendingApproval, StateApproved,
			StateApprovedWithObservations, StateRejected, StatePublished, StateArchived,
		},
		Initial:  StateDraft,
		Terminal: []State{StateArchived},
		Transitions: []Transition{
			{
				Name: "submit_for_approval", From: StateDraft, To: StatePendingApproval,
				AllowOwner: true,
				Effects:    []Effect{Notify("quality_manager", "library_document_submitted")},
			},
			{
				Name: "approve", From: StatePendingApproval, To: StateApproved,
				AllowedRoles: reviewers,
				Effects:      []Effect{Notify("owner", "library_document_approved")},
			},
			{
				Name: "approve_with_observations", From: StatePendingApproval, To: StateApprovedWithObservations,
				AllowedRoles:   reviewers,
				RequiredFields: []string{entity.FieldObservations, entity.FieldCorrections},
				Effects:        []Effect{Notify("owner", "library_document_approved_with_observations")},
			},
			{
				Name: "reject", From: StatePendingApproval, To: StateRejected,
				AllowedRoles:   reviewers,
				RequiredFields: []string{entity.FieldReason},
				Effects:        []Effect{Notify("owner", "library_document_rejected")},
			},
			{
				Name: "publish", From: StateApproved, To: StatePublished,
				AllowedRoles: reviewers,
				Effects:      []Effect{Notify("all", "library_document_published")},
			},
			{
				Name: "publish", From: StateApprovedWithObservations, To: StatePublished,
				AllowedRoles: reviewers,
				Effects:      []Effect{Notify("all", "library_document_published")},
			},
			{
				Name: "archive", From: StatePublished, To: StateArchived,
				AllowedRoles: []entity.Role{entity.RoleAdmin},
			},
			{
				Name: "revise", From: StateRejected, To: StateDraft,
				AllowOwner: true,
			},
		},
	}
}

func policyDefinition() *Definition {
	publishers := []entity.Role{entity.RoleQualityManager, entity.RoleAdmin}
	return &Definition{
		Kind: entity.KindPolicy,
		States: []State{
			StateDraft, StateUnderReview, StatePendingSignatures,
			StateApproved, StatePublished, StateObsolete,
		},
		Initial:  StateDraft,
		Terminal: []State{StateObsolete},
		Transitions: []Transition{
			{
				Name: "submit_for_review", From: StateDraft, To: StateUnderReview,
				AllowOwner: true,
				Effects:    []Effect{Notify("auditor", "policy_submitted")},
			},
			{
				Name: "complete_review", From: StateUnderReview, To: StatePendingSignatures,
				AllowedRoles: []entity.Role{entity.RoleAuditor, entity.RoleQualityManager, entity.RoleAdmin},
			},
			{
				Name: "board_approve", From: StatePendingSignatures, To: StateApproved,
				AllowedRoles:   []entity.Role{entity.RoleBoard},
				RequiredFields: []string{"date"},
				Effects: []Effect{
					SetField(entity.FieldBoardDate, "date"),
					SetFlag(entity.FieldBoardOK),
				},
			},
			{
				Name: "publish", From: StateApproved, To: StatePublished,
				AllowedRoles: publishers,
				Effects: []Effect{
					SetField(entity.FieldEffectiveDate, entity.FieldEffectiveDate),
					Notify("all", "policy_published"),
				},
			},
			{
				Name: "mark_obsolete", From: StatePublished, To: StateObsolete,
				AllowedRoles: publishers,
			},
		},
	}
}

func trainingPlanDefinition() *Definition {
	managers := []entity.Role{entity.RoleTrainingManager, entity.RoleAdmin}
	cancellable := []State{StatePlanning, StateBudgetReview, StateQuotation, StateApproved, StateScheduled}
	def := &Definition{
		Kind: entity.KindTrainingPlan,
		States: []State{
			StatePlanning, StateBudgetReview, StateQuotation, StateApproved,
			StateScheduled, StateInProgress, StateCompleted, StateCancelled,
		},
		Initial:  StatePlanning,
		Terminal: []State{StateCompleted, StateCancelled},
		Transitions: []Transition{
			{
				Name: "submit_budget", From: StatePlanning, To: StateBudgetReview,
				AllowOwner: true, AllowedRoles: managers,
				RequiredFields: []string{"budget_amount"},
				Effects: []Effect{
					SetField("budget_amount", "budget_amount"),
					Notify("budget_owner", "training_budget_submitted"),
				},
			},
			{
				Name: "approve_budget", From: StateBudgetReview, To: StateQuotation,
				AllowedRoles: []entity.Role{entity.RoleBudgetOwner},
				Effects: []Effect{
					SetFlag(entity.FieldBudgetOK),
					Notify("owner", "training_budget_approved"),
				},
			},
			{
				Name: "select_quotation", From: StateQuotation, To: StateApproved,
				AllowedRoles: managers,
				Effects:      []Effect{SetField("provider", "provider")},
			},
			{
				Name: "schedule", From: StateApproved, To: StateScheduled,
				AllowedRoles:  managers,
				RequiredFlags: []string{entity.FieldBudgetOK},
			},
			{
				Name: "start", From: StateScheduled, To: StateInProgress,
				AllowedRoles: managers,
			},
			{
				Name: "complete", From: StateInProgress, To: StateCompleted,
				AllowedRoles: managers,
			},
		},
	}
	for _, from := range cancellable {
		def.Transitions = append(def.Transitions, Transition{
			Name: "cancel", From: from, To: StateCancelled,
			AllowedRoles:   managers,
			RequiredFields: []string{entity.FieldReason},
		})
	}
	return def
}

func trainingSessionDefinition() *Definition {
	managers := []entity.Role{entity.RoleTrainingManager, entity.RoleHRManager, entity.RoleAdmin}
	def := &Definition{
		Kind:     entity.KindTrainingSession,
		States:   []State{StateScheduled, StateConfirmed, StateInProgress, StateCompleted, StateCancelled},
		Initial:  StateScheduled,
		Terminal: []State{StateCompleted, StateCancelled},
		Transitions: []Transition{
			{
				Name: "confirm", From: StateScheduled, To: StateConfirmed,
				AllowedRoles: managers,
				Effects:      []Effect{Notify("participants", "session_confirmed")},
			},
			{
				Name: "start", From: StateConfirmed, To: StateInProgress,
				AllowedRoles: managers,
			},
			{
				Name: "complete", From: StateInProgress, To: StateCompleted,
				AllowedRoles: managers,
				Effects:      []Effect{Notify("participants", "session_completed")},
			},
			{
				Name: "cancel", From: StateScheduled, To: StateCancelled,
				AllowedRoles:   managers,
				RequiredFields: []string{entity.FieldReason},
				Effects:        []Effect{Notify("participants", "session_cancelled")},
			},
			{
				Name: "cancel", From: StateConfirmed, To: StateCancelled,
				AllowedRoles:   managers,
				RequiredFields: []string{entity.FieldReason},
				Effects:        []Effect{Notify("participants", "session_cancelled")},
			},
		},
	}
	// Assigning participants does not advance the session; it fans out one
	// attendance record per newly assigned user.
	for _, from := range []State{StateScheduled, StateConfirmed} {
		def.Transitions = append(def.Transitions, Transition{
			Name: "assign_participants", From: from, To: from,
			AllowedRoles:   managers,
			RequiredFields: []string{entity.FieldUserIDs},
			Effects:        []Effect{AssignUsers()},
		})
	}
	return def
}

func vacancyDefinition() *Definition {
	hr := []entity.Role{entity.RoleHRManager, entity.RoleAdmin}
	def := &Definition{
		Kind:     entity.KindVacancy,
		States:   []State{StateDraft, StatePendingApproval, StatePublished, StateClosed, StateFilled, StateCancelled},
		Initial:  StateDraft,
		Terminal: []State{StateClosed, StateFilled, StateCancelled},
		Transitions: []Transition{
			{
				Name: "submit_for_approval", From: StateDraft, To: StatePendingApproval,
				AllowOwner: true, AllowedRoles: hr,
				Effects: []Effect{Notify("budget_owner", "vacancy_submitted")},
			},
			{
				Name: "approve_budget", From: StatePendingApproval, To: StatePendingApproval,
				AllowedRoles: []entity.Role{entity.RoleBudgetOwner},
				Effects: []Effect{
					SetFlag(entity.FieldBudgetOK),
					Notify("hr_manager", "vacancy_budget_approved"),
				},
			},
			{
				Name: "publish", From: StatePendingApproval, To: StatePublished,
				AllowedRoles:  hr,
				RequiredFlags: []string{entity.FieldBudgetOK},
				Effects:       []Effect{Notify("all", "vacancy_published")},
			},
			// Any employee may apply to a published vacancy; applying does
			// not advance the vacancy itself.
			{
				Name: "apply", From: StatePublished, To: StatePublished,
				Effects: []Effect{CreateApplication()},
			},
			{
				Name: "close", From: StatePublished, To: StateClosed,
				AllowedRoles: hr,
			},
			{
				Name: "fill", From: StatePublished, To: StateFilled,
				AllowedRoles: hr,
				Effects:      []Effect{Notify("owner", "vacancy_filled")},
			},
		},
	}
	for _, from := range []State{StateDraft, StatePendingApproval, StatePublished} {
		def.Transitions = append(def.Transitions, Transition{
			Name: "cancel", From: from, To: StateCancelled,
			AllowedRoles:   hr,
			RequiredFields: []string{entity.FieldReason},
		})
	}
	return def
}
