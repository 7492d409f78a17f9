package model

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Операторские команды, приходящие через kafka
const (
	CommandInvalidateAll = "invalidate_all"
	CommandRefresh       = "refresh"
)

// Command — сообщение канала управления дашбордом
// теги validate используются для проверки корректности данных при получении
type Command struct {
	Command     string    `json:"command" validate:"required,oneof=invalidate_all refresh"`
	RequestedBy string    `json:"requested_by" validate:"required"`
	RequestedAt time.Time `json:"requested_at"`
}

var validate = validator.New()

// Validate проверяет корректность структуры Command на основе тегов validate
func (c *Command) Validate() error {
	return validate.Struct(c)
}
