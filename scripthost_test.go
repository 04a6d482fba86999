package scripthost

import (
	"bytes"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder is a markCalled binding scripts report through.
type recorder struct {
	calls chan string
}

func newRecorder() *recorder {
	return &recorder{calls: make(chan string, 32)}
}

func (r *recorder) binding() Binding {
	return Binding{Name: "markCalled", Arity: 1, Fn: func(args []any) (any, error) {
		s, _ := args[0].(string)
		r.calls <- s
		return Undefined, nil
	}}
}

func (r *recorder) expect(t *testing.T, want string) {
	t.Helper()
	select {
	case got := <-r.calls:
		assert.Equal(t, want, got)
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for markCalled(%q)", want)
	}
}

func (r *recorder) expectNothing(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case got := <-r.calls:
		t.Fatalf("unexpected markCalled(%q)", got)
	case <-time.After(d):
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func testScenes() []SceneDef {
	return []SceneDef{
		{Name: "Main", Items: []SceneItemDef{{Name: "Camera", Visible: true}, {Name: "Overlay", Visible: true}}},
		{Name: "BRB"},
	}
}

func newTestScript(t *testing.T, rec *recorder, opts ...Option) *Script {
	t.Helper()
	cfg := Config{Scenes: testScenes(), Logger: quietLogger()}
	opts = append([]Option{WithBindings("", rec.binding())}, opts...)
	s, err := New(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestScript_TimerFires(t *testing.T) {
	rec := newRecorder()
	s := newTestScript(t, rec)

	require.NoError(t, s.Load(`setTimer(0.02, function() { markCalled("fired"); });`))
	rec.expect(t, "fired")

	require.Eventually(t, func() bool { return s.Stats().TimersFired == 1 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, s.Stats().PendingTimers)
}

func TestScript_TimerKeepsReceiver(t *testing.T) {
	rec := newRecorder()
	s := newTestScript(t, rec)

	require.NoError(t, s.Load(`
		OBS.setTimer.call({ tag: "ctx" }, 0.01, function() { markCalled(this.tag); });
	`))
	rec.expect(t, "ctx")
}

func TestScript_TimersFireInDeadlineOrder(t *testing.T) {
	rec := newRecorder()
	s := newTestScript(t, rec)

	require.NoError(t, s.Load(`
		setTimer(0.15, function() { markCalled("third"); });
		setTimer(0.01, function() { markCalled("first"); });
		setTimer(0.08, function() { markCalled("second"); });
	`))
	rec.expect(t, "first")
	rec.expect(t, "second")
	rec.expect(t, "third")
}

func TestScript_NestedTimer(t *testing.T) {
	rec := newRecorder()
	s := newTestScript(t, rec)

	require.NoError(t, s.Load(`
		setTimer(0.01, function() {
			markCalled("outer");
			setTimer(0.01, function() { markCalled("inner"); });
		});
	`))
	rec.expect(t, "outer")
	rec.expect(t, "inner")
}

func TestScript_SetTimerRequiresFunction(t *testing.T) {
	rec := newRecorder()
	s := newTestScript(t, rec)

	require.NoError(t, s.Load(`
		try { setTimer(1, 5); markCalled("no error"); }
		catch (e) { markCalled(e instanceof TypeError ? "TypeError" : String(e)); }
	`))
	rec.expect(t, "TypeError")
	assert.Zero(t, s.Stats().PendingTimers)
}

func TestScript_StashIsNotAGlobal(t *testing.T) {
	rec := newRecorder()
	s := newTestScript(t, rec)

	require.NoError(t, s.Load(`
		setTimer(3600, function() {});
		var names = Object.getOwnPropertyNames(globalThis);
		var leaked = names.filter(function(n) {
			var v = globalThis[n];
			return n.indexOf("__stash_") === 0 || (v !== null && typeof v === "object" && "timers" in v);
		});
		markCalled(leaked.join(","));
	`))
	rec.expect(t, "")
	assert.Equal(t, 1, s.Stats().PendingTimers)
}

func TestScript_HugeDelayDoesNotFire(t *testing.T) {
	rec := newRecorder()
	s := newTestScript(t, rec)

	require.NoError(t, s.Load(`setTimer(1e10, function() { markCalled("fired"); });`))
	rec.expectNothing(t, 200*time.Millisecond)
	assert.Equal(t, 1, s.Stats().PendingTimers)
}

func TestScript_UserErrorStillStartsLoop(t *testing.T) {
	rec := newRecorder()
	s := newTestScript(t, rec)

	require.NoError(t, s.Load(`
		setTimer(0.01, function() { markCalled("ran"); });
		throw new Error("after scheduling");
	`))
	rec.expect(t, "ran")
}

func TestScript_CallbackErrorDoesNotStopLoop(t *testing.T) {
	rec := newRecorder()
	s := newTestScript(t, rec)

	require.NoError(t, s.Load(`
		setTimer(0.01, function() { throw new Error("callback failed"); });
		setTimer(0.05, function() { markCalled("second"); });
	`))
	rec.expect(t, "second")
}

func TestScript_StopCancelsTimers(t *testing.T) {
	rec := newRecorder()
	s := newTestScript(t, rec)

	require.NoError(t, s.Load(`setTimer(0.2, function() { markCalled("late"); });`))
	s.Stop()
	assert.False(t, s.Loaded())
	rec.expectNothing(t, 400*time.Millisecond)

	assert.NotPanics(t, s.Stop)
}

func TestScript_ReloadReplacesGeneration(t *testing.T) {
	rec := newRecorder()
	s := newTestScript(t, rec)

	require.NoError(t, s.Load(`setTimer(0.2, function() { markCalled("old"); });`))
	require.NoError(t, s.Load(`setTimer(0.3, function() { markCalled("new"); });`))
	rec.expect(t, "new")
	rec.expectNothing(t, 100*time.Millisecond)
	assert.Equal(t, `setTimer(0.3, function() { markCalled("new"); });`, s.GetText())
}

func TestScript_LoadEmptyUnloads(t *testing.T) {
	rec := newRecorder()
	s := newTestScript(t, rec)

	require.NoError(t, s.Load(`setTimer(0.1, function() { markCalled("x"); });`))
	require.NoError(t, s.Load(""))
	assert.False(t, s.Loaded())
	assert.Equal(t, "", s.GetText())
	rec.expectNothing(t, 250*time.Millisecond)
}

func TestScript_SceneObjects(t *testing.T) {
	rec := newRecorder()
	s := newTestScript(t, rec)

	require.NoError(t, s.Load(`
		var scene = OBS.findScene("Main");
		var cam = scene.findSource("Camera");
		cam.hide();
		scene.findSource("Overlay").setVisible(false);
		scene.select();
		markCalled(String(OBS.findScene("Nope") === null) + "," + String(scene.findSource("Nope") === null));
		cam.release();
		cam.release();
		scene.release();
	`))
	rec.expect(t, "true,true")

	cat := s.Scenes()
	require.NotNil(t, cat)
	v, err := cat.Visible("Main", "Camera")
	require.NoError(t, err)
	assert.False(t, v)
	v, err = cat.Visible("Main", "Overlay")
	require.NoError(t, err)
	assert.False(t, v)
	assert.Equal(t, "Main", cat.Program())
}

func TestScript_BindingErrorsAreCatchable(t *testing.T) {
	rec := newRecorder()
	s := newTestScript(t, rec)

	require.NoError(t, s.Load(`
		try { OBS.internal.sceneFind(5); }
		catch (e) { markCalled(e instanceof TypeError ? "TypeError" : "other"); }
		try { OBS.internal.sceneSelect(999); }
		catch (e) { markCalled(e.message); }
	`))
	rec.expect(t, "TypeError")
	rec.expect(t, "invalid scene: invalid handle")
}

func TestScript_ReleaseByFinalizer(t *testing.T) {
	rec := newRecorder()
	cfg := Config{Scenes: testScenes(), Logger: quietLogger(), GCInterval: 10 * time.Millisecond}
	s, err := New(cfg, WithBindings("", rec.binding()))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Load(`
		markCalled(String(typeof FinalizationRegistry === 'function'));
		(function() { OBS.findScene("Main").findSource("Camera"); })();
	`))
	if <-rec.calls != "true" {
		t.Skip("engine has no FinalizationRegistry")
	}
	require.Eventually(t, func() bool { return s.Scenes().Refs() == 0 }, 3*time.Second, 10*time.Millisecond)
}

func TestScript_WatchdogCollects(t *testing.T) {
	cfg := Config{Logger: quietLogger(), GCInterval: 10 * time.Millisecond}
	s, err := New(cfg)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Load(`var garbage = [];`))
	require.Eventually(t, func() bool { return s.Stats().Collections >= 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestScript_Console(t *testing.T) {
	var mu sync.Mutex
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&lockedWriter{mu: &mu, w: &buf}, nil))

	rec := newRecorder()
	s := newTestScript(t, rec, WithLogger(log))
	require.NoError(t, s.Load(`console.warn("hello", { a: 1 }); markCalled("logged");`))
	rec.expect(t, "logged")

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, buf.String(), `hello {\"a\":1}`)
	assert.Contains(t, buf.String(), "level=WARN")
}

type lockedWriter struct {
	mu *sync.Mutex
	w  *bytes.Buffer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

func TestScript_BootstrapThrowIsLogged(t *testing.T) {
	rec := newRecorder()
	s := newTestScript(t, rec, WithBootstrap(`throw new Error("broken environment");`))

	require.NoError(t, s.Load(`markCalled("user ran");`))
	rec.expect(t, "user ran")
	assert.True(t, s.Loaded())
}

func TestScript_BootstrapRuntimeSyntaxErrorIsLogged(t *testing.T) {
	rec := newRecorder()
	s := newTestScript(t, rec, WithBootstrap(`JSON.parse("{");`))

	require.NoError(t, s.Load(`markCalled("user ran");`))
	rec.expect(t, "user ran")
	assert.True(t, s.Loaded())
}

func TestNew_BootstrapSyntaxError(t *testing.T) {
	_, err := New(Config{Logger: quietLogger()}, WithBootstrap("var = ;"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBootstrap))
	var se *ScriptError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 1, se.Line)
}

func TestNew_MissingBootstrap(t *testing.T) {
	_, err := New(Config{Bootstrap: filepath.Join(t.TempDir(), "nope.js"), Logger: quietLogger()})
	assert.ErrorContains(t, err, "could not find bootstrap script")
	assert.ErrorIs(t, err, ErrBootstrap)
}

func TestNew_ScenesDB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenes.db")
	rec := newRecorder()

	s, err := New(Config{ScenesDB: path, Scenes: testScenes(), Logger: quietLogger()}, WithBindings("", rec.binding()))
	require.NoError(t, err)
	require.NoError(t, s.Load(`OBS.findScene("BRB").select(); markCalled("done");`))
	rec.expect(t, "done")
	require.NoError(t, s.Close())

	s, err = New(Config{ScenesDB: path, Logger: quietLogger()})
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, "BRB", s.Scenes().Program())
	assert.Equal(t, []string{"BRB", "Main"}, s.Scenes().Scenes())
}

func TestCheckScript(t *testing.T) {
	assert.NoError(t, CheckScript(`setTimer(1, function() {});`, "ok.js"))

	err := CheckScript("var a = 1;\nvar = 2;\n", "bad.js")
	var se *ScriptError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 2, se.Line)
}
