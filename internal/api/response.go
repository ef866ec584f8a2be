package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shaiso/Processo/internal/access"
	"github.com/shaiso/Processo/internal/child"
	"github.com/shaiso/Processo/internal/engine"
	"github.com/shaiso/Processo/internal/signature"
	"github.com/shaiso/Processo/internal/storage"
)

// ErrorCode — код ошибки API.
type ErrorCode string

const (
	ErrCodeBadRequest     ErrorCode = "BAD_REQUEST"
	ErrCodeNotFound       ErrorCode = "NOT_FOUND"
	ErrCodeConflict       ErrorCode = "CONFLICT"
	ErrCodeForbidden      ErrorCode = "FORBIDDEN"
	ErrCodeInvalidState   ErrorCode = "INVALID_STATE"
	ErrCodeInvalidAction  ErrorCode = "INVALID_ACTION"
	ErrCodePrecondition   ErrorCode = "PRECONDITION_FAILED"
	ErrCodeAlreadySigned  ErrorCode = "ALREADY_SIGNED"
	ErrCodeOutOfOrder     ErrorCode = "OUT_OF_ORDER"
	ErrCodeInternalError  ErrorCode = "INTERNAL_ERROR"
	ErrCodeTooManyRequest ErrorCode = "TOO_MANY_REQUESTS"
)

// ErrorResponse — структура ответа с ошибкой.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail — детали ошибки.
type ErrorDetail struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// DataResponse — структура успешного ответа.
type DataResponse struct {
	Data any `json:"data"`
}

// ListResponse — структура ответа со списком.
type ListResponse struct {
	Data  any `json:"data"`
	Total int `json:"total,omitempty"`
}

// JSON отправляет JSON ответ.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Success отправляет успешный ответ с данными.
func Success(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, DataResponse{Data: data})
}

// Created отправляет ответ о создании ресурса.
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, DataResponse{Data: data})
}

// List отправляет ответ со списком.
func List(w http.ResponseWriter, data any, total int) {
	JSON(w, http.StatusOK, ListResponse{Data: data, Total: total})
}

// Error отправляет ответ с ошибкой.
func Error(w http.ResponseWriter, status int, code ErrorCode, message string) {
	JSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// BadRequest отправляет ошибку 400.
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// NotFound отправляет ошибку 404.
func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// InternalError отправляет ошибку 500.
func InternalError(w http.ResponseWriter, logger *slog.Logger, err error) {
	logger.Error("internal error", "error", err)
	Error(w, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")
}

// HandleServiceError преобразует ошибку сервисного слоя в HTTP ответ.
// Возвращает true, если ответ отправлен.
//
// Маппинг: InvalidState/PreconditionFailed → 422, Forbidden → 403,
// InvalidAction → 400, конфликты (ErrConflict, AlreadySigned,
// ErrAlreadyExists) → 409, OutOfOrder → 422, NotAResolvedSigner → 403,
// NotFound → 404, InvalidConfiguration → 500 с логированием.
func HandleServiceError(w http.ResponseWriter, logger *slog.Logger, err error, notFoundMsg string) bool {
	if err == nil {
		return false
	}

	switch {
	case errors.Is(err, storage.ErrNotFound):
		if notFoundMsg == "" {
			notFoundMsg = "not found"
		}
		NotFound(w, notFoundMsg)

	case errors.Is(err, engine.ErrForbidden),
		errors.Is(err, signature.ErrNotAResolvedSigner),
		errors.Is(err, signature.ErrIdentity),
		errors.Is(err, access.ErrDenied):
		Error(w, http.StatusForbidden, ErrCodeForbidden, err.Error())

	case errors.Is(err, engine.ErrInvalidAction):
		Error(w, http.StatusBadRequest, ErrCodeInvalidAction, err.Error())

	case errors.Is(err, engine.ErrInvalidState):
		Error(w, http.StatusUnprocessableEntity, ErrCodeInvalidState, err.Error())

	case errors.Is(err, engine.ErrPreconditionFailed):
		Error(w, http.StatusUnprocessableEntity, ErrCodePrecondition, err.Error())

	case errors.Is(err, signature.ErrAlreadySigned):
		Error(w, http.StatusConflict, ErrCodeAlreadySigned, err.Error())

	case errors.Is(err, signature.ErrOutOfOrder):
		Error(w, http.StatusUnprocessableEntity, ErrCodeOutOfOrder, err.Error())

	case errors.Is(err, storage.ErrConflict),
		errors.Is(err, storage.ErrAlreadyExists):
		Error(w, http.StatusConflict, ErrCodeConflict, err.Error())

	case errors.Is(err, signature.ErrBadAssignee),
		errors.Is(err, signature.ErrDuplicateOrder),
		errors.Is(err, child.ErrBadRecurrence):
		BadRequest(w, err.Error())

	case errors.Is(err, child.ErrParentCancelled),
		errors.Is(err, child.ErrChildTypeInactive):
		Error(w, http.StatusUnprocessableEntity, ErrCodeInvalidState, err.Error())

	case errors.Is(err, engine.ErrInvalidConfiguration):
		// Дефект шаблона, а не запроса: существующий экземпляр
		// не может продолжиться. Детали — только в лог.
		logger.Error("template configuration error", "error", err)
		Error(w, http.StatusInternalServerError, ErrCodeInternalError, "process template is misconfigured")

	default:
		InternalError(w, logger, err)
	}
	return true
}
