package domain

// ProjectRegistration records the binding between one hidden directory of a
// parent repository and the remote repository that backs it. Registrations are
// created exactly once per (parent, directory) pair and never modified.
type ProjectRegistration struct {
	RepositoryKey        string `json:"repository_key"`
	RemoteRepositoryName string `json:"remote_repository_name"`
	OwningUser           string `json:"owning_user"`
	ParentRemoteURL      string `json:"parent_remote_url"`
	ParentDiskPath       string `json:"parent_disk_path"`
	HiddenDirectoryName  string `json:"hidden_directory_name"`
	CreatedAt            string `json:"created_at"`
}

// IndexData is the serialized form of the project index: a map from repository
// key to registration. Keys are unique; the index package owns all mutation.
type IndexData struct {
	Projects map[string]ProjectRegistration `json:"projects"`
}

// NewIndexData returns an empty index document.
func NewIndexData() *IndexData {
	return &IndexData{
		Projects: make(map[string]ProjectRegistration),
	}
}
