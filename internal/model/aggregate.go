package model

import "time"

// LabelCount — строка агрегата "подпись → количество"
type LabelCount struct {
	Label string
	Count int64
}

// UserDeliveryCount — число доставленных заказов одного пользователя
type UserDeliveryCount struct {
	UserID         int64
	Name           string
	Matricule      string
	Administration string
	Count          int64
}

// Label возвращает подпись для графика: "имя (табельный номер)" или просто имя
func (u UserDeliveryCount) Label() string {
	if u.Matricule == "" {
		return u.Name
	}
	return u.Name + " (" + u.Matricule + ")"
}

// DayCount — число созданных заказов за календарный день
type DayCount struct {
	Day   time.Time
	Count int64
}
