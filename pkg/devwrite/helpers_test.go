package devwrite

import "fmt"

func fmtWrap(msg string, err error) error {
	return fmt.Errorf("%s: %w", msg, err)
}
