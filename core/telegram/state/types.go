package state

// Step names the form field that is awaiting the user's reply.
type Step string

const (
	// StepName awaits the profile name; every conversation starts here.
	StepName Step = "name"
	// StepDescription awaits the profile description.
	StepDescription Step = "description"
	// StepProfilePic awaits the profile picture URL.
	StepProfilePic Step = "profilePic"
	// StepAddress awaits the controller address and triggers submission.
	StepAddress Step = "address"
)

// Steps lists the form fields in collection order.
var Steps = []Step{StepName, StepDescription, StepProfilePic, StepAddress}

// Valid reports whether s is one of the known steps.
func (s Step) Valid() bool {
	switch s {
	case StepName, StepDescription, StepProfilePic, StepAddress:
		return true
	}
	return false
}

// Next returns the step that follows s. The address step is terminal.
func (s Step) Next() (Step, bool) {
	switch s {
	case StepName:
		return StepDescription, true
	case StepDescription:
		return StepProfilePic, true
	case StepProfilePic:
		return StepAddress, true
	}
	return "", false
}

// Conversation is the in-progress form of one chat.
type Conversation struct {
	Step        Step
	Name        string
	Description string
	ProfilePic  string
	Address     string
}

// Store maps chat ids to conversations. Implementations return copies,
// so callers must Put a modified conversation back.
type Store interface {
	Get(chatID int64) (Conversation, bool)
	Put(chatID int64, conv Conversation)
	Delete(chatID int64)
	Len() int
}
