package cache

import "fmt"

// UnavailableError означает, что хранилище кэша недоступно
// вызывающий код должен деградировать до чтения из источника, а не падать
type UnavailableError struct {
	Op  string
	Key string
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("cache unavailable: %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}
