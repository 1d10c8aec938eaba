package core

type (
	// Logger logs messages; args may carry errors, maps of extras and a Person.
	Logger interface {
		Debug(msg string, args ...interface{})
		Info(msg string, args ...interface{})
		Warn(msg string, args ...interface{})
		Error(msg string, args ...interface{})
		Fatal(msg string, args ...interface{})
	}

	// Person identifies the authenticated caller attached to a log entry.
	Person struct {
		ID       string
		Username string
	}
)
