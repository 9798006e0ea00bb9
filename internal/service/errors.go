package service

import (
	"errors"
	"fmt"

	"github.com/parentmeet/parentmeet/internal/model"
)

// Доменные ошибки. HTTP-слой маппит их на коды ответов.
var (
	ErrInvalidInput            = errors.New("invalid input")
	ErrInvalidTimeRange        = errors.New("start time must be before end time")
	ErrInvalidPattern          = errors.New("invalid generation pattern")
	ErrSlotConflict            = errors.New("slot overlaps an existing slot")
	ErrSlotUnavailable         = errors.New("slot is not available")
	ErrSlotInUse               = errors.New("slot has an active appointment")
	ErrInvalidStatusTransition = errors.New("status transition is not allowed")
	ErrNotFound                = errors.New("not found")
	ErrForbidden               = errors.New("no permission for this action")
	ErrEmailTaken              = errors.New("email is already registered")
	ErrInvalidCredentials      = errors.New("invalid email or password")
)

// SlotConflictError несёт ID существующего слота, с которым пересёкся кандидат
type SlotConflictError struct {
	SlotID int64
}

func (e *SlotConflictError) Error() string {
	return fmt.Sprintf("slot overlaps existing slot %d", e.SlotID)
}

func (e *SlotConflictError) Unwrap() error {
	return ErrSlotConflict
}

// StatusTransitionError несёт запрошенный переход статуса
type StatusTransitionError struct {
	From model.AppointmentStatus
	To   model.AppointmentStatus
}

func (e *StatusTransitionError) Error() string {
	return fmt.Sprintf("cannot transition appointment from %s to %s", e.From, e.To)
}

func (e *StatusTransitionError) Unwrap() error {
	return ErrInvalidStatusTransition
}
