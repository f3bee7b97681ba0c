package profile

import (
	"fmt"

	"github.com/m3rciful/profilebot/core/telegram/state"
)

// StartCommand begins (or restarts) the profile form.
const StartCommand = "/start"

const (
	msgWelcome  = "Welcome! Let's create your Universal Profile. First, please provide your name."
	msgCreating = "Creating your profile. Please wait..."
	msgFailure  = "There was an error creating the profile. Please try again later."
)

// prompts holds the question sent when a conversation enters a step.
var prompts = map[state.Step]string{
	state.StepName:        msgWelcome,
	state.StepDescription: "Great! Now please provide a description for your profile.",
	state.StepProfilePic:  "Excellent! Now, please send a URL for your profile picture.",
	state.StepAddress:     "Almost done! Finally, please provide an Ethereum address.",
}

func successMessage(address, txHash string) string {
	return fmt.Sprintf("Your Universal Profile has been created!\nAddress: %s\nTransaction: %s", address, txHash)
}
