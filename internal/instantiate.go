package internal

import "fmt"

// HostFactory builds the node kinds the host environment provides.
type HostFactory interface {
	// CreateHostComponent builds the kind for an intrinsic element, i.e. one
	// whose type is a tag name.
	CreateHostComponent(el *Element) Component

	CreateTextComponent(text string) Component

	// CreateEmptyComponent builds the placeholder standing in for nil/false.
	CreateEmptyComponent() Component
}

// CompositeFactory wraps user-defined element types in a stateful kind.
type CompositeFactory func(el *Element) Component

// Instantiator turns descriptions into nodes, assigning mount orders.
type Instantiator struct {
	host      HostFactory
	composite CompositeFactory

	lastMountOrder uint64
}

func NewInstantiator(host HostFactory, composite CompositeFactory) *Instantiator {
	return &Instantiator{
		host:      host,
		composite: composite,
	}
}

func (i *Instantiator) InjectHost(host HostFactory) {
	i.host = host
}

func (i *Instantiator) InjectComposite(composite CompositeFactory) {
	i.composite = composite
}

// Instantiate builds the node for desc:
//   - nil, false or a nil *Element: empty placeholder
//   - string or number: text
//   - *Element with a string type: host component
//   - *Element with an InternalType: the component it builds
//   - any other *Element: composite
func (i *Instantiator) Instantiate(desc any) *Node {
	var c Component

	switch d := desc.(type) {
	case nil:
		c = i.mustHost().CreateEmptyComponent()

	case bool:
		if d {
			invariant(ErrInvalidNode, "got true")
		}
		c = i.mustHost().CreateEmptyComponent()

	case *Element:
		if d == nil {
			c = i.mustHost().CreateEmptyComponent()
			break
		}
		c = i.instantiateElement(d)

	case string:
		c = i.mustHost().CreateTextComponent(d)

	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		c = i.mustHost().CreateTextComponent(fmt.Sprint(d))

	default:
		invariant(ErrInvalidNode, "unsupported description of type %T", desc)
	}

	if c == nil {
		invariant(ErrInvalidNode, "factory returned no component for %T", desc)
	}

	i.lastMountOrder++
	return newNode(c, desc, i.lastMountOrder)
}

func (i *Instantiator) instantiateElement(el *Element) Component {
	switch t := el.Type.(type) {
	case nil:
		invariant(ErrInvalidElementType, "element type is nil")

	case string:
		if t == "" {
			invariant(ErrInvalidElementType, "element type is an empty tag")
		}
		return i.mustHost().CreateHostComponent(el)

	case InternalType:
		return t.NewComponent(el)
	}

	if i.composite == nil {
		invariant(ErrNotInjected, "no composite factory for element type %T", el.Type)
	}
	return i.composite(el)
}

func (i *Instantiator) mustHost() HostFactory {
	if i.host == nil {
		invariant(ErrNotInjected, "no host factory")
	}
	return i.host
}
