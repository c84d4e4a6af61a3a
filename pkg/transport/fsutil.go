package transport

import (
    "os"
    "path/filepath"
)

// WriteFileAtomic writes data next to path and renames it into place, so a
// poller never observes a partially written file.
func WriteFileAtomic(path string, data []byte) error {
    tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
    if err != nil { return err }
    name := tmp.Name()
    if _, err := tmp.Write(data); err != nil {
        _ = tmp.Close()
        _ = os.Remove(name)
        return err
    }
    if err := tmp.Close(); err != nil {
        _ = os.Remove(name)
        return err
    }
    if err := os.Rename(name, path); err != nil {
        _ = os.Remove(name)
        return err
    }
    return nil
}
