// Package notify builds account-holder notifications and delivers them.
package notify

import (
	"fmt"
	"strings"

	"bankcore/internal/core"
	"bankcore/internal/ledger"
)

const SubjectInsufficientBalance = "Your cyclical transfer couldn't be realised!"

// InsufficientBalance tells owner that def was skipped for lack of funds.
func InsufficientBalance(owner core.Account, def core.RecurringDefinition) ledger.Notification {
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", owner.FullName)
	fmt.Fprintf(&b, "your cyclical transfer no. %d could not be realised because the balance of account %s is too low.\n\n",
		def.ID, owner.AccountNumber)
	fmt.Fprintf(&b, "Title:       %s\n", def.Title)
	fmt.Fprintf(&b, "Receiver:    %s\n", receiver(def))
	fmt.Fprintf(&b, "Amount:      %s\n", def.Amount)
	fmt.Fprintf(&b, "Balance:     %s\n", owner.Balance)
	fmt.Fprintf(&b, "Due date:    %s\n\n", def.NextDueDate)
	b.WriteString("The transfer will be attempted again on the next run. Top up your account to avoid another failure.\n")

	return ledger.Notification{
		Recipient:    owner.Email,
		Subject:      SubjectInsufficientBalance,
		Body:         b.String(),
		DefinitionID: def.ID,
		Amount:       def.Amount,
	}
}

func receiver(def core.RecurringDefinition) string {
	if name := strings.TrimSpace(def.ReceiverName); name != "" {
		return fmt.Sprintf("%s (%s)", name, def.DestinationAccount)
	}
	return def.DestinationAccount
}
