package catalog

// ResourceState enumerates the states a reactive read can be in.
type ResourceState int

const (
	ResourceIdle ResourceState = iota
	ResourceLoading
	ResourceEmpty
	ResourceSuccess
	ResourceError
)

// String returns the state name.
func (s ResourceState) String() string {
	switch s {
	case ResourceIdle:
		return "Idle"
	case ResourceLoading:
		return "Loading"
	case ResourceEmpty:
		return "Empty"
	case ResourceSuccess:
		return "Success"
	case ResourceError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Resource is the tri-state envelope every reactive read delivers, so a
// consumer can render loading, failure and empty without the store crashing
// the process. Data is meaningful only when State is ResourceSuccess;
// Message only when State is ResourceError.
type Resource[T any] struct {
	State   ResourceState
	Data    T
	Message string
}

func Idle[T any]() Resource[T] {
	return Resource[T]{State: ResourceIdle}
}

func Loading[T any]() Resource[T] {
	return Resource[T]{State: ResourceLoading}
}

func Empty[T any]() Resource[T] {
	return Resource[T]{State: ResourceEmpty}
}

func Success[T any](data T) Resource[T] {
	return Resource[T]{State: ResourceSuccess, Data: data}
}

func Failure[T any](message string) Resource[T] {
	return Resource[T]{State: ResourceError, Message: message}
}
