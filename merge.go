package mediagrab

import (
	"fmt"
	"io"
	"os"
)

// MergeFragments is the default merge implementation: byte concatenation of
// the fragment files in order, written to a temporary file and renamed to
// destination, so the destination is only ever fully valid or absent.
//
// It is idempotent: if destination already holds the complete artifact,
// calling again succeeds without rewriting it.
func MergeFragments(fragmentPaths []string, destination string) error {
	if len(fragmentPaths) == 0 {
		return &MergeError{Destination: destination, Err: fmt.Errorf("no fragments to merge")}
	}

	if complete, err := mergeComplete(fragmentPaths, destination); err != nil {
		return &MergeError{Destination: destination, Err: err}
	} else if complete {
		return nil
	}

	tempPath := destination + ".part"
	out, err := os.Create(tempPath)
	if err != nil {
		return &MergeError{Destination: destination, Err: err}
	}
	defer os.Remove(tempPath)

	for _, path := range fragmentPaths {
		if err := appendFile(out, path); err != nil {
			_ = out.Close()
			return &MergeError{Destination: destination, Err: err}
		}
	}
	if err := out.Close(); err != nil {
		return &MergeError{Destination: destination, Err: err}
	}
	if err := os.Rename(tempPath, destination); err != nil {
		return &MergeError{Destination: destination, Err: err}
	}
	return nil
}

// mergeComplete reports whether destination already holds the concatenation of
// the fragments, by total size. Missing fragments alongside an existing
// destination also count as complete: the merge already ran and the inputs
// were cleaned up.
func mergeComplete(fragmentPaths []string, destination string) (bool, error) {
	destInfo, err := os.Stat(destination)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	var total int64
	for _, path := range fragmentPaths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				return true, nil
			}
			return false, err
		}
		total += info.Size()
	}
	return destInfo.Size() == total, nil
}

func appendFile(out io.Writer, path string) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()
	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("failed to append %q: %w", path, err)
	}
	return nil
}
