package a

import "os"

type fakeFs struct{}

func (fakeFs) MkdirAll(path string, perm os.FileMode) error { return nil }

func writeFile(fs fakeFs, name string, data []byte, perm os.FileMode) error { return nil }

type helpers struct{}

func (helpers) WriteFile(fs fakeFs, name string, data []byte, perm os.FileMode) error {
	return writeFile(fs, name, data, perm)
}

const userOnly = 0o600

func examples() {
	_ = os.WriteFile("a", nil, 0o600) // want `use fileutil.ReadWriteUserPermission instead of hardcoded 0o600`
	_ = os.WriteFile("b", nil, 0644)  // want `use fileutil.ReadWriteUserReadOthers instead of hardcoded 0644`
	_ = os.MkdirAll("c", 0o755)       // want `use fileutil.ReadWriteExecuteUserReadExecuteOthers instead of hardcoded 0o755`
	_ = os.WriteFile("d", nil, userOnly)
	_ = os.WriteFile("e", nil, 0o400)

	var h helpers
	_ = h.WriteFile(fakeFs{}, "f", nil, 0o600) // want `use fileutil.ReadWriteUserPermission instead of hardcoded 0o600`
	_ = fakeFs{}.MkdirAll("g", 0o700)
}
