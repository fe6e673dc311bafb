package geyser

// ReplicaAccountInfo is the notification payload passed to Plugin.UpdateAccount
type ReplicaAccountInfo struct {
	// Pubkey is the 32 byte account address
	Pubkey []byte
	// Lamports is the account balance
	Lamports uint64
	// Owner is the 32 byte address of the owning program
	Owner []byte
	// Executable is true if the account holds a loaded program
	Executable bool
	// RentEpoch is the epoch at which the account next owes rent
	RentEpoch uint64
	// Data is the account data
	Data []byte
	// WriteVersion orders writes to the same account within a slot
	WriteVersion uint64
}
