package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"
)

// readSource reads the script named by args: a file path, or stdin when
// args is empty or "-". It rejects empty scripts and scripts longer than
// maxLen characters.
func readSource(cmd *cobra.Command, args []string, maxLen int) (string, error) {
	var (
		data []byte
		err  error
	)
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", WrapExitError(ExitCommandError, ErrCodeReadFailed+": failed to read stdin", err)
		}
	} else {
		data, err = os.ReadFile(args[0])
		if os.IsNotExist(err) {
			return "", NewExitError(ExitCommandError, fmt.Sprintf("%s: script not found: %s", ErrCodeNotFound, args[0]))
		}
		if err != nil {
			return "", WrapExitError(ExitCommandError, ErrCodeReadFailed+": failed to read script", err)
		}
	}

	return checkSource(string(data), maxLen)
}

// checkSource applies the submission limits to source.
func checkSource(source string, maxLen int) (string, error) {
	if strings.TrimSpace(source) == "" {
		return "", NewExitError(ExitCommandError, ErrCodeEmptySource+": script is empty")
	}
	if n := utf8.RuneCountInString(source); maxLen > 0 && n > maxLen {
		return "", NewExitError(ExitCommandError,
			fmt.Sprintf("%s: script is %d characters, limit is %d", ErrCodeSourceTooLong, n, maxLen))
	}
	return source, nil
}
