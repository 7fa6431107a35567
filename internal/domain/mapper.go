package domain

// VersionMapper is a read-only view of the complete server and client version
// sets of the folder being synced. It is built once per cycle.
type VersionMapper struct {
	serverDirs  map[string]DirectoryVersion
	clientDirs  map[string]DirectoryVersion
	serverFiles map[string]FileVersion
	clientFiles map[string]FileVersion

	// input order, for deterministic iteration
	serverFileOrder []string
	clientFileOrder []string
}

// NewVersionMapper indexes the given version sets; later duplicates overwrite earlier ones
func NewVersionMapper(serverDirs, clientDirs []DirectoryVersion, serverFiles, clientFiles []FileVersion) *VersionMapper {
	m := &VersionMapper{
		serverDirs:  make(map[string]DirectoryVersion, len(serverDirs)),
		clientDirs:  make(map[string]DirectoryVersion, len(clientDirs)),
		serverFiles: make(map[string]FileVersion, len(serverFiles)),
		clientFiles: make(map[string]FileVersion, len(clientFiles)),
	}
	for _, d := range serverDirs {
		m.serverDirs[d.Path] = d
	}
	for _, d := range clientDirs {
		m.clientDirs[d.Path] = d
	}
	for _, f := range serverFiles {
		if _, seen := m.serverFiles[f.Name]; !seen {
			m.serverFileOrder = append(m.serverFileOrder, f.Name)
		}
		m.serverFiles[f.Name] = f
	}
	for _, f := range clientFiles {
		if _, seen := m.clientFiles[f.Name]; !seen {
			m.clientFileOrder = append(m.clientFileOrder, f.Name)
		}
		m.clientFiles[f.Name] = f
	}
	return m
}

// ServerDirectory looks up a server directory by path
func (m *VersionMapper) ServerDirectory(path string) (DirectoryVersion, bool) {
	d, ok := m.serverDirs[path]
	return d, ok
}

// ClientDirectory looks up a client directory by path
func (m *VersionMapper) ClientDirectory(path string) (DirectoryVersion, bool) {
	d, ok := m.clientDirs[path]
	return d, ok
}

// ServerFile looks up a server file by name
func (m *VersionMapper) ServerFile(name string) (FileVersion, bool) {
	f, ok := m.serverFiles[name]
	return f, ok
}

// ClientFile looks up a client file by name
func (m *VersionMapper) ClientFile(name string) (FileVersion, bool) {
	f, ok := m.clientFiles[name]
	return f, ok
}

// ServerFilesBySum returns the server files with the given checksum in input order
func (m *VersionMapper) ServerFilesBySum(sum string) []FileVersion {
	var result []FileVersion
	for _, name := range m.serverFileOrder {
		if f := m.serverFiles[name]; f.Checksum == sum {
			result = append(result, f)
		}
	}
	return result
}

// UsedFileNames returns every file name known on either side
func (m *VersionMapper) UsedFileNames() map[string]bool {
	used := make(map[string]bool, len(m.serverFiles)+len(m.clientFiles))
	for name := range m.serverFiles {
		used[name] = true
	}
	for name := range m.clientFiles {
		used[name] = true
	}
	return used
}
