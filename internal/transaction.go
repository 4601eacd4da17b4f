package internal

// Wrapper is a pair of hooks bracketing every Transaction.Perform call.
// Either hook may be nil. The value returned by Initialize is handed to Close.
type Wrapper struct {
	Initialize func() (any, error)
	Close      func(data any) error
}

// Transaction runs a method between the Initialize and Close hooks of its
// wrappers.
//
// Wrappers initialize in order. If one fails, the remaining ones are skipped
// and so is the method. Every wrapper that did initialize gets closed, in the
// same order, even if the method or another Close fails. The first failure is
// what Perform reports: a returned error is returned, a panic is re-panicked.
type Transaction struct {
	wrappers []Wrapper

	// per Perform call
	initData    []any
	initialized []bool

	inTransaction bool
}

func NewTransaction(wrappers ...Wrapper) *Transaction {
	t := &Transaction{}
	t.Reinitialize(wrappers...)
	return t
}

// Reinitialize replaces the wrappers. Not allowed while performing.
func (t *Transaction) Reinitialize(wrappers ...Wrapper) {
	if t.inTransaction {
		invariant(ErrAlreadyInTransaction, "cannot reinitialize")
	}

	t.wrappers = wrappers
	t.initData = make([]any, len(wrappers))
	t.initialized = make([]bool, len(wrappers))
}

func (t *Transaction) InTransaction() bool {
	return t.inTransaction
}

func (t *Transaction) Perform(method func() error) error {
	if t.inTransaction {
		invariant(ErrAlreadyInTransaction, "cannot perform a transaction while one is outstanding")
	}
	t.inTransaction = true

	first := t.initializeAll()
	if first == nil {
		first = capture(method)
	}

	if f := t.closeAll(); first == nil {
		first = f
	}

	t.inTransaction = false

	return first.raise()
}

func (t *Transaction) initializeAll() *failure {
	for i, w := range t.wrappers {
		if w.Initialize == nil {
			t.initData[i] = nil
			t.initialized[i] = true
			continue
		}

		var data any
		f := capture(func() (err error) {
			data, err = w.Initialize()
			return err
		})
		if f != nil {
			return f
		}

		t.initData[i] = data
		t.initialized[i] = true
	}

	return nil
}

func (t *Transaction) closeAll() *failure {
	var first *failure

	for i, w := range t.wrappers {
		if !t.initialized[i] {
			continue
		}

		data := t.initData[i]
		t.initialized[i] = false
		t.initData[i] = nil

		if w.Close == nil {
			continue
		}

		if f := capture(func() error { return w.Close(data) }); first == nil {
			first = f
		}
	}

	return first
}

// failure is either an error returned by a hook or the value it panicked with.
type failure struct {
	err      error
	panicked bool
	value    any
}

func capture(fn func() error) (f *failure) {
	defer func() {
		if r := recover(); r != nil {
			f = &failure{panicked: true, value: r}
		}
	}()

	if err := fn(); err != nil {
		return &failure{err: err}
	}

	return nil
}

func (f *failure) raise() error {
	if f == nil {
		return nil
	}
	if f.panicked {
		panic(f.value)
	}

	return f.err
}
