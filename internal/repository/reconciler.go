package repository

import (
	"context"
	"fmt"
	"regexp"

	"gorm.io/gorm"
)

var procedureName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Reconciler invokes the database procedure that fills any payment rows still missing after a run
type Reconciler struct {
	db        *gorm.DB
	procedure string
}

// NewReconciler initializes a reconciler for the given stored procedure.
// An empty procedure disables reconciliation.
func NewReconciler(db *gorm.DB, procedure string) (*Reconciler, error) {
	if procedure != "" && !procedureName.MatchString(procedure) {
		return nil, fmt.Errorf("invalid reconcile procedure name: %q", procedure)
	}
	return &Reconciler{db: db, procedure: procedure}, nil
}

// GenerateMissingPayments runs the reconciliation procedure once
func (r *Reconciler) GenerateMissingPayments(ctx context.Context) error {
	if r.procedure == "" {
		return nil
	}
	if err := r.db.WithContext(ctx).Exec("SELECT " + r.procedure + "()").Error; err != nil {
		return fmt.Errorf("failed to run %s: %w", r.procedure, err)
	}
	return nil
}
