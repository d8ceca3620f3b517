package services

// FailureKind tells handlers which of the failure categories a Result is.
type FailureKind int

const (
	NoFailure FailureKind = iota
	ValidationFailure
	UploadFailure
	PersistenceFailure
	NotFoundFailure
)

// Result is the outcome of an admin form submission. Errors is only set for
// validation failures and maps form field names to rule descriptions.
type Result struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors,omitempty"`
	ID      string              `json:"id,omitempty"`
	Kind    FailureKind         `json:"-"`
}

const (
	msgCheckInput   = "Please check your input."
	msgUploadFailed = "Failed to upload image. Please try again."
)

func succeeded(msg, id string) Result {
	return Result{Success: true, Message: msg, ID: id}
}

func invalid(msg string, errs fieldErrors) Result {
	return Result{Message: msg, Errors: errs, Kind: ValidationFailure}
}

func uploadFailed() Result {
	return Result{Message: msgUploadFailed, Kind: UploadFailure}
}

// persistenceFailed builds "Failed to <op> <entity>. Please try again later.".
func persistenceFailed(op, entity string) Result {
	return Result{Message: "Failed to " + op + " " + entity + ". Please try again later.", Kind: PersistenceFailure}
}

func notFound(entity string) Result {
	return Result{Message: entity + " not found.", Kind: NotFoundFailure}
}
