package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	storeerrors "github.com/vango-go/trackstore/internal/errors"
	"github.com/vango-go/trackstore/pkg/reactive"
	"github.com/vango-go/trackstore/pkg/store"
)

// repl runs commands against one store.
type repl struct {
	ctx    context.Context
	store  *store.Store
	out    io.Writer
	prompt bool

	watchers  map[int]*watcher
	nextWatch int
}

// watcher re-reads its path whenever it is notified, the way a view would
// re-render.
type watcher struct {
	id   int
	path string
	segs []string
	sub  reactive.Subscriber
}

func newREPL(ctx context.Context, st *store.Store, out io.Writer) *repl {
	return &repl{
		ctx:      ctx,
		store:    st,
		out:      out,
		watchers: make(map[int]*watcher),
	}
}

// run executes lines from in until quit, EOF or the context ends. Lines are
// read on their own goroutine so a cancelled context ends run even while a
// read is blocked; commands still run on the caller's goroutine.
func (r *repl) run(in io.Reader) error {
	lines := make(chan string)
	errc := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-r.ctx.Done():
				return
			case <-done:
				return
			}
		}
		errc <- scanner.Err()
		close(lines)
	}()

	for {
		if r.ctx.Err() != nil {
			return nil
		}
		if r.prompt {
			fmt.Fprint(r.out, "> ")
		}

		var line string
		select {
		case <-r.ctx.Done():
			return nil
		case l, ok := <-lines:
			if !ok {
				return <-errc
			}
			line = l
		}

		quit, err := r.exec(line)
		if err != nil {
			r.printErr(err)
		}
		if quit {
			return nil
		}
	}
}

// exec runs one command line.
func (r *repl) exec(line string) (bool, error) {
	cmd, rest := splitWord(strings.TrimSpace(line))
	switch cmd {
	case "":
		return false, nil
	case "quit", "exit":
		r.unwatchAll()
		return true, nil
	case "help":
		fmt.Fprintln(r.out, "commands: get set del push inc dec watch unwatch dump help quit")
		return false, nil
	case "dump":
		return false, r.get(".")
	case "get":
		return false, r.get(rest)
	case "set":
		path, raw := splitWord(rest)
		return false, r.set(path, raw)
	case "del":
		return false, r.del(rest)
	case "push":
		path, raw := splitWord(rest)
		return false, r.push(path, raw)
	case "inc", "dec":
		path, raw := splitWord(rest)
		return false, r.add(cmd, path, raw)
	case "watch":
		if rest == "" {
			r.listWatchers()
			return false, nil
		}
		return false, r.watch(rest)
	case "unwatch":
		return false, r.unwatch(rest)
	}
	return false, storeerrors.New("T200").WithDetailf("%q; try help", cmd)
}

func (r *repl) get(path string) error {
	segs, err := parsePath(path)
	if err != nil {
		return err
	}
	v, err := readPath(r.store.State(nil), segs)
	if err != nil {
		return err
	}
	return r.print(v)
}

func (r *repl) set(path, raw string) error {
	segs, err := parsePath(path)
	if err != nil {
		return err
	}
	if len(segs) == 0 {
		return storeerrors.New("T201").WithDetail("cannot replace the root; set its keys instead")
	}
	v, err := parseValue(raw)
	if err != nil {
		return err
	}

	return r.store.Do(r.ctx, "set", func(state *reactive.WriteMap) error {
		parent, last, err := writeParent(state, segs)
		if err != nil {
			return err
		}
		switch p := parent.(type) {
		case *reactive.WriteMap:
			return p.Set(last, v)
		case *reactive.WriteList:
			i, err := strconv.Atoi(last)
			if err != nil {
				return badSegment(last, "is not a list index")
			}
			return p.SetAt(i, v)
		}
		return notContainer(segs[:len(segs)-1])
	})
}

func (r *repl) del(path string) error {
	segs, err := parsePath(path)
	if err != nil {
		return err
	}
	if len(segs) == 0 {
		return storeerrors.New("T201").WithDetail("cannot delete the root")
	}

	return r.store.Do(r.ctx, "del", func(state *reactive.WriteMap) error {
		parent, last, err := writeParent(state, segs)
		if err != nil {
			return err
		}
		switch p := parent.(type) {
		case *reactive.WriteMap:
			return p.Delete(last)
		case *reactive.WriteList:
			i, err := strconv.Atoi(last)
			if err != nil {
				return badSegment(last, "is not a list index")
			}
			return p.RemoveAt(i)
		}
		return notContainer(segs[:len(segs)-1])
	})
}

func (r *repl) push(path, raw string) error {
	segs, err := parsePath(path)
	if err != nil {
		return err
	}
	v, err := parseValue(raw)
	if err != nil {
		return err
	}

	return r.store.Do(r.ctx, "push", func(state *reactive.WriteMap) error {
		target, err := writeTarget(state, segs)
		if err != nil {
			return err
		}
		list, ok := target.(*reactive.WriteList)
		if !ok {
			return storeerrors.New("T201").WithDetailf("%s is not a list", joinPath(segs))
		}
		return list.Append(v)
	})
}

func (r *repl) add(cmd, path, raw string) error {
	segs, err := parsePath(path)
	if err != nil {
		return err
	}
	if len(segs) == 0 {
		return storeerrors.New("T201").WithDetail("the root is not a number")
	}

	delta := 1.0
	if raw != "" {
		delta, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			return storeerrors.New("T200").WithDetailf("%s amount %q is not a number", cmd, raw)
		}
	}
	if cmd == "dec" {
		delta = -delta
	}

	return r.store.Do(r.ctx, cmd, func(state *reactive.WriteMap) error {
		parent, last, err := writeParent(state, segs)
		if err != nil {
			return err
		}
		p, ok := parent.(*reactive.WriteMap)
		if !ok {
			return storeerrors.New("T201").WithDetailf("%s is not a map key", joinPath(segs))
		}

		switch n := p.Get(last).(type) {
		case int:
			if delta == float64(int(delta)) {
				return p.Set(last, n+int(delta))
			}
			return p.Set(last, float64(n)+delta)
		case float64:
			return p.Set(last, n+delta)
		case nil:
			if p.Has(last) {
				break
			}
			if delta == float64(int(delta)) {
				return p.Set(last, int(delta))
			}
			return p.Set(last, delta)
		}
		return storeerrors.New("T201").WithDetailf("%s is not a number", joinPath(segs))
	})
}

func (r *repl) watch(path string) error {
	segs, err := parsePath(path)
	if err != nil {
		return err
	}

	r.nextWatch++
	w := &watcher{id: r.nextWatch, path: joinPath(segs), segs: segs}
	w.sub = reactive.NewSubscriber(func() {
		// Re-render: drop the old dependencies, then read again.
		r.store.Unsubscribe(w.sub)
		r.render(w)
	})
	r.watchers[w.id] = w

	fmt.Fprintf(r.out, "watch %d: %s\n", w.id, w.path)
	r.render(w)
	return nil
}

func (r *repl) render(w *watcher) {
	v, err := readPath(r.store.State(w.sub), w.segs)
	if err != nil {
		fmt.Fprintf(r.out, "[%d] %s: %s\n", w.id, w.path, errorText(err))
		return
	}
	fmt.Fprintf(r.out, "[%d] %s = %s\n", w.id, w.path, encode(v))
}

func (r *repl) unwatch(raw string) error {
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return storeerrors.New("T200").WithDetailf("unwatch needs a watch number, got %q", raw)
	}
	w, ok := r.watchers[id]
	if !ok {
		return storeerrors.New("T200").WithDetailf("no watch %d", id)
	}
	r.store.Unsubscribe(w.sub)
	delete(r.watchers, id)
	fmt.Fprintf(r.out, "unwatched %d\n", id)
	return nil
}

func (r *repl) unwatchAll() {
	for id, w := range r.watchers {
		r.store.Unsubscribe(w.sub)
		delete(r.watchers, id)
	}
}

func (r *repl) listWatchers() {
	ids := make([]int, 0, len(r.watchers))
	for id := range r.watchers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		fmt.Fprintf(r.out, "%d: %s\n", id, r.watchers[id].path)
	}
}

func (r *repl) print(v any) error {
	plain, err := reactive.ToValue(v)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(plain, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(r.out, string(data))
	return nil
}

func (r *repl) printErr(err error) {
	fmt.Fprintf(r.out, "error: %s\n", errorText(err))
}

func errorText(err error) string {
	var se *storeerrors.StoreError
	if errors.As(err, &se) {
		return se.FormatCompact()
	}
	return err.Error()
}

// encode renders v as compact JSON for watch lines.
func encode(v any) string {
	plain, err := reactive.ToValue(v)
	if err != nil {
		return errorText(err)
	}
	data, err := json.Marshal(plain)
	if err != nil {
		return errorText(err)
	}
	return string(data)
}

func splitWord(s string) (string, string) {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, " \t"); i >= 0 {
		return s[:i], strings.TrimSpace(s[i+1:])
	}
	return s, ""
}
