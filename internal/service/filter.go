package service

import (
	"fmt"
	"regexp"
	"strings"
)

// AdministrationFilter отсеивает значения поля administration, которые на деле
// являются ролями, статусами или идентификаторами, попавшими туда по ошибке
type AdministrationFilter struct {
	terms    []string
	patterns []*regexp.Regexp
}

// NewAdministrationFilter собирает фильтр из словаря и регулярных выражений
// словарь сравнивается без учёта регистра, по вхождению подстроки
func NewAdministrationFilter(terms, patterns []string) (*AdministrationFilter, error) {
	f := &AdministrationFilter{}
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			f.terms = append(f.terms, t)
		}
	}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid administration pattern %q: %w", p, err)
		}
		f.patterns = append(f.patterns, re)
	}
	return f, nil
}

// Allowed сообщает, похоже ли значение на настоящее подразделение
func (f *AdministrationFilter) Allowed(label string) bool {
	label = strings.TrimSpace(label)
	if label == "" {
		return false
	}
	if f == nil {
		return true
	}
	for _, re := range f.patterns {
		if re.MatchString(label) {
			return false
		}
	}
	lower := strings.ToLower(label)
	for _, t := range f.terms {
		if strings.Contains(lower, t) {
			return false
		}
	}
	return true
}
