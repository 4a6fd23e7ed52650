package coachflow

// Command is one sub-command of the coachflow binary. Parse returns the command
// together with the shared [Config]; [Main] dispatches it to the matching method
// on [App].
type Command interface {
	// Name returns the sub-command name as typed on the command line.
	Name() string
}

// RunCommand starts the HTTP API and serves until the context is cancelled.
//
//	coachflow -store postgres -port 8090 run
type RunCommand struct{}

func (c *RunCommand) Name() string { return "run" }

// MigrateCommand prepares the schema of the configured store. It is safe to run
// repeatedly; the memory store has nothing to prepare.
//
//	coachflow -store surrealdb migrate
type MigrateCommand struct{}

func (c *MigrateCommand) Name() string { return "migrate" }

// SeedCommand fills the configured store with a demo practice: one client with a
// workspace page holding a block of every type, a portal with its default pages
// and that client as a member, a deliverable, a global resource and a
// notification.
//
//	coachflow -store postgres seed
type SeedCommand struct{}

func (c *SeedCommand) Name() string { return "seed" }
