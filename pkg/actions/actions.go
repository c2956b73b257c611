package actions

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/linkedlist"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/registry"
	"github.com/mitchellh/mapstructure"
)

// Action names of the built-in variants.
const (
	PushValues  = "push_values"
	PrintList   = "print_list"
	ReverseList = "reverse_list"
	Lua         = "lua"
)

var errMissingParam = fmt.Errorf("%w: missing parameter", domain.ErrInvalidParams)

// Option configures the built-in actions.
type Option func(*config)

type config struct {
	out    io.Writer
	logger *slog.Logger
}

// WithOutput sets where print_list writes. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(c *config) {
		c.out = w
	}
}

// WithLogger configures the structured logger used by the actions.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// Register adds every built-in action to reg.
func Register(reg *registry.Registry, opts ...Option) {
	cfg := &config{out: os.Stdout, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(cfg)
	}

	reg.Register(PushValues, bind(cfg, func(b base) ports.TaskInstance { return &pushValuesTask{base: b} }))
	reg.Register(PrintList, bind(cfg, func(b base) ports.TaskInstance { return &printListTask{base: b} }))
	reg.Register(ReverseList, bind(cfg, func(b base) ports.TaskInstance { return &reverseListTask{base: b} }))
	reg.Register(Lua, bind(cfg, func(b base) ports.TaskInstance { return &luaTask{base: b} }))
}

func bind(cfg *config, build func(base) ports.TaskInstance) registry.Constructor {
	return func(name string, state domain.State) (ports.TaskInstance, error) {
		list, ok := state.(*linkedlist.List)
		if !ok {
			return nil, fmt.Errorf("task %q: unsupported state type %T", name, state)
		}
		return build(base{name: name, list: list, cfg: cfg}), nil
	}
}

// base holds what every built-in task shares: its name and the list it owns.
type base struct {
	name string
	list *linkedlist.List
	cfg  *config
}

func (b *base) Name() string { return b.name }

func (b *base) Result() domain.State { return b.list }

// decodeParams decodes the descriptor params into out.
// Weak typing lets YAML/JSON numbers and strings land in int fields.
func decodeParams(params map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(params); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidParams, err)
	}
	return nil
}
