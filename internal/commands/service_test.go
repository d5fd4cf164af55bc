package commands

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"

	"github.com/dwizi/playbot/internal/boterr"
	"github.com/dwizi/playbot/internal/cache"
	"github.com/dwizi/playbot/internal/cratesio"
	"github.com/dwizi/playbot/internal/docs"
	"github.com/dwizi/playbot/internal/playground"
)

const testGistID = "0123456789abcdef0123456789abcdef"

type fakePlayground struct {
	mu           sync.Mutex
	response     playground.ExecuteResponse
	err          error
	executed     []playground.ExecuteRequest
	miri         []playground.MiriRequest
	gistGets     int
	gistsCreated []string
	versions     playground.Versions
	crates       playground.Crates
	metaCalls    int
}

func (f *fakePlayground) Execute(ctx context.Context, request playground.ExecuteRequest) (playground.ExecuteResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.executed = append(f.executed, request)
	return f.response, f.err
}

func (f *fakePlayground) Miri(ctx context.Context, request playground.MiriRequest) (playground.ExecuteResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.miri = append(f.miri, request)
	return f.response, f.err
}

func (f *fakePlayground) GistGet(ctx context.Context, id string) (playground.Gist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gistGets++
	return playground.Gist{ID: id, URL: "https://gist.github.com/rust-play/" + id, Code: "fn main() { println!(\"gist\"); }"}, nil
}

func (f *fakePlayground) GistCreate(ctx context.Context, code string) (playground.Gist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gistsCreated = append(f.gistsCreated, code)
	return playground.Gist{ID: "ffffffffffffffffffffffffffffffff", URL: "https://gist.github.com/rust-play/ffff", Code: code}, nil
}

func (f *fakePlayground) Versions(ctx context.Context) (playground.Versions, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metaCalls++
	return f.versions, nil
}

func (f *fakePlayground) Crates(ctx context.Context) (playground.Crates, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metaCalls++
	return f.crates, nil
}

type fakeRegistry struct {
	calls    int
	response cratesio.CrateResponse
	err      error
}

func (f *fakeRegistry) GetCrate(ctx context.Context, name string) (cratesio.CrateResponse, error) {
	f.calls++
	return f.response, f.err
}

type fakeDocs struct {
	items map[docs.Source][]docs.Item
}

func (f *fakeDocs) Search(source docs.Source, query string, limit int) []docs.Item {
	for _, item := range f.items[source] {
		if strings.EqualFold(item.Name, query) {
			return []docs.Item{item}
		}
	}
	return nil
}

type testDeps struct {
	playground *fakePlayground
	registry   *fakeRegistry
	docs       *fakeDocs
	redis      *miniredis.Miniredis
}

func newTestService(t *testing.T) (*Service, *testDeps) {
	t.Helper()
	server := miniredis.RunT(t)
	store, err := cache.NewRedisStore(server.Addr())
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cacheClient := cache.New(store, logger)
	t.Cleanup(func() { _ = cacheClient.Close() })

	deps := &testDeps{
		playground: &fakePlayground{response: playground.ExecuteResponse{Success: true, Stdout: "hello"}},
		registry:   &fakeRegistry{},
		docs:       &fakeDocs{items: map[docs.Source][]docs.Item{}},
		redis:      server,
	}
	service := New(Config{MaxCodeSize: 1024}, deps.playground, deps.registry, deps.docs, cacheClient, logger)
	return service, deps
}

func TestHandleMessageInlineRun(t *testing.T) {
	service, deps := newTestService(t)
	output, err := service.HandleMessage(context.Background(), MessageInput{
		Connector: "discord",
		ChannelID: "chan-1",
		UserID:    "user-1",
		Text:      "!cargo run -r beta\n```rust\nfn main(){}\n```",
	})
	if err != nil {
		t.Fatalf("handle message: %v", err)
	}
	if !output.Handled {
		t.Fatal("expected message to be handled")
	}
	want := []playground.ExecuteRequest{{
		Channel:   playground.ChannelBeta,
		Mode:      playground.ModeRelease,
		Edition:   playground.Edition2024,
		CrateType: playground.CrateBinary,
		Code:      "fn main(){}",
	}}
	if diff := cmp.Diff(want, deps.playground.executed); diff != "" {
		t.Fatalf("unexpected requests (-want +got):\n%s", diff)
	}
	if output.Reply.Content != "Running your code returned the following output <@user-1>\n```hello```" {
		t.Fatalf("unexpected reply %q", output.Reply.Content)
	}
}

func TestHandleMessageRunAliasWithoutParams(t *testing.T) {
	service, deps := newTestService(t)
	deps.playground.response = playground.ExecuteResponse{Success: false, Stdout: "ignored", Stderr: ""}
	output, err := service.HandleMessage(context.Background(), MessageInput{
		UserID: "user-2",
		Text:   "!run ```rust\nfn main(){}\n```",
	})
	if err != nil {
		t.Fatalf("handle message: %v", err)
	}
	if output.Reply.Content != "Running your code gave no output <@user-2>" {
		t.Fatalf("unexpected reply %q", output.Reply.Content)
	}
	if diff := cmp.Diff(playground.DefaultParams().ExecuteRequest("fn main(){}"), deps.playground.executed[0]); diff != "" {
		t.Fatalf("expected default request (-want +got):\n%s", diff)
	}
}

func TestHandleMessageMissingCodeBlock(t *testing.T) {
	service, deps := newTestService(t)
	output, err := service.HandleMessage(context.Background(), MessageInput{UserID: "user-1", Text: "!cargo run -r just words"})
	if !errors.Is(err, boterr.ErrNoCodeBlock) {
		t.Fatalf("expected ErrNoCodeBlock, got %v", err)
	}
	if !output.Handled {
		t.Fatal("expected failed command to count as handled")
	}
	if len(deps.playground.executed) != 0 {
		t.Fatal("expected no backend call")
	}
}

func TestHandleMessageIgnoresNonCommands(t *testing.T) {
	service, _ := newTestService(t)
	for _, text := range []string{"hello there", "!unknown thing", "", "!crate search serde"} {
		output, err := service.HandleMessage(context.Background(), MessageInput{Text: text})
		if err != nil || output.Handled {
			t.Fatalf("expected %q to be ignored, got handled=%v err=%v", text, output.Handled, err)
		}
	}
}

func TestHandleMessageInlineMiri(t *testing.T) {
	service, deps := newTestService(t)
	deps.playground.response = playground.ExecuteResponse{Success: false, Stderr: "error: Undefined Behavior"}
	output, err := service.HandleMessage(context.Background(), MessageInput{
		UserID: "user-3",
		Text:   "!cargo miri tree 2021\n```rust\nfn main(){}\n```",
	})
	if err != nil {
		t.Fatalf("handle message: %v", err)
	}
	want := playground.MiriRequest{Edition: playground.Edition2021, AliasingModel: playground.AliasingTree, Code: "fn main(){}"}
	if diff := cmp.Diff([]playground.MiriRequest{want}, deps.playground.miri); diff != "" {
		t.Fatalf("unexpected miri request (-want +got):\n%s", diff)
	}
	if !strings.HasPrefix(output.Reply.Content, "Running your code with miri returned the following output <@user-3>") {
		t.Fatalf("unexpected reply %q", output.Reply.Content)
	}
}

func TestRunGistFetchesOnceThenUsesCache(t *testing.T) {
	service, deps := newTestService(t)
	reference := "https://gist.github.com/rust-play/" + strings.ToUpper(testGistID) + "/raw"
	params := playground.ParamsFromOptions(map[string]string{"channel": "nightly"})

	for i := 0; i < 2; i++ {
		reply, err := service.RunGist(context.Background(), reference, params)
		if err != nil {
			t.Fatalf("run gist %d: %v", i, err)
		}
		if !strings.HasPrefix(reply.Content, "Running the code from [#"+testGistID+"](<https://gist.github.com/rust-play/"+testGistID+">) gave the following output") {
			t.Fatalf("unexpected reply %q", reply.Content)
		}
	}
	if deps.playground.gistGets != 1 {
		t.Fatalf("expected one gist fetch, got %d", deps.playground.gistGets)
	}
	if !deps.redis.Exists(cache.GistKey(testGistID)) {
		t.Fatal("expected gist to be cached")
	}
	if ttl := deps.redis.TTL(cache.GistKey(testGistID)); ttl != 24*time.Hour {
		t.Fatalf("expected 24h ttl, got %s", ttl)
	}
	if len(deps.playground.executed) != 2 || deps.playground.executed[0].Channel != playground.ChannelNightly {
		t.Fatalf("unexpected executions %+v", deps.playground.executed)
	}
}

func TestRunGistRefetchesAfterExpiry(t *testing.T) {
	service, deps := newTestService(t)
	if _, err := service.MiriGist(context.Background(), testGistID, playground.DefaultParams()); err != nil {
		t.Fatalf("miri gist: %v", err)
	}
	deps.redis.FastForward(25 * time.Hour)
	if _, err := service.MiriGist(context.Background(), testGistID, playground.DefaultParams()); err != nil {
		t.Fatalf("miri gist: %v", err)
	}
	if deps.playground.gistGets != 2 {
		t.Fatalf("expected refetch after expiry, got %d fetches", deps.playground.gistGets)
	}
}

func TestRunGistInvalidID(t *testing.T) {
	service, deps := newTestService(t)
	_, err := service.RunGist(context.Background(), "not a gist", playground.DefaultParams())
	if !boterr.IsUserError(err) || !strings.Contains(boterr.UserFacing(err), "not a gist") {
		t.Fatalf("expected invalid id error echoing input, got %v", err)
	}
	if deps.playground.gistGets != 0 {
		t.Fatal("expected no gist fetch")
	}
}

func TestRunFileValidation(t *testing.T) {
	service, deps := newTestService(t)
	loads := 0
	load := func(content string) func(context.Context) ([]byte, error) {
		return func(ctx context.Context) ([]byte, error) {
			loads++
			return []byte(content), nil
		}
	}

	_, err := service.RunFile(context.Background(), &Attachment{Filename: "main.rs", Size: 4096, Load: load("x")}, playground.DefaultParams())
	message := boterr.UserFacing(err)
	if !strings.Contains(message, "4096") || !strings.Contains(message, "1024") {
		t.Fatalf("expected size error naming both sizes, got %q", message)
	}

	_, err = service.RunFile(context.Background(), &Attachment{Filename: "notes.txt", Size: 10, Load: load("x")}, playground.DefaultParams())
	if !boterr.IsUserError(err) || !strings.Contains(boterr.UserFacing(err), "notes.txt") {
		t.Fatalf("expected not valid file error, got %v", err)
	}
	if loads != 0 {
		t.Fatalf("expected no download before validation, got %d", loads)
	}

	_, err = service.MiriFile(context.Background(), &Attachment{Filename: "bad.rs", Size: 3, Load: load("\xff\xfe\xfd")}, playground.DefaultParams())
	if !errors.Is(err, boterr.ErrNotValidUTF8) {
		t.Fatalf("expected ErrNotValidUTF8, got %v", err)
	}
	if len(deps.playground.executed)+len(deps.playground.miri) != 0 {
		t.Fatal("expected no backend calls for rejected files")
	}

	reply, err := service.RunFile(context.Background(), &Attachment{Filename: "main.rs", Size: 12, URL: "https://cdn.example/main.rs", Load: load("fn main(){}")}, playground.DefaultParams())
	if err != nil {
		t.Fatalf("run file: %v", err)
	}
	if reply.Content != "Running the code from [main.rs](<https://cdn.example/main.rs>) gave the following output\n```hello```" {
		t.Fatalf("unexpected reply %q", reply.Content)
	}
}

func TestInlineCodeTooLong(t *testing.T) {
	service, deps := newTestService(t)
	code := strings.Repeat("// padding\n", 500) + "fn main(){}"
	for _, command := range []string{"!cargo run", "!cargo miri"} {
		_, err := service.HandleMessage(context.Background(), MessageInput{ChannelID: "c", UserID: "u", Text: command + "\n```rust\n" + code + "\n```"})
		if !boterr.IsUserError(err) {
			t.Fatalf("%s: expected size error, got %v", command, err)
		}
		message := boterr.UserFacing(err)
		if !strings.Contains(message, strconv.Itoa(len(code))) || !strings.Contains(message, "1024") {
			t.Fatalf("%s: expected size error naming both sizes, got %q", command, message)
		}
	}
	if len(deps.playground.executed)+len(deps.playground.miri) != 0 {
		t.Fatal("expected no backend calls for oversized code")
	}
}

func TestHandleMessageAcceptsCRLF(t *testing.T) {
	service, deps := newTestService(t)
	_, err := service.HandleMessage(context.Background(), MessageInput{ChannelID: "c", UserID: "u", Text: "!cargo run\r\n```rust\r\nfn main(){}\r\n```"})
	if err != nil {
		t.Fatalf("run crlf: %v", err)
	}
	if len(deps.playground.executed) != 1 || deps.playground.executed[0].Code != "fn main(){}" {
		t.Fatalf("unexpected requests: %+v", deps.playground.executed)
	}
}

func TestOutputIsTruncated(t *testing.T) {
	service, deps := newTestService(t)
	deps.playground.response = playground.ExecuteResponse{Success: true, Stdout: strings.Repeat("line\n", 500)}
	reply, err := service.RunInline(context.Background(), "u", "```rust\nfn main(){}\n```")
	if err != nil {
		t.Fatalf("run inline: %v", err)
	}
	if len(reply.Content) > 2000 {
		t.Fatalf("expected reply to fit a chat message, got %d bytes", len(reply.Content))
	}
	if strings.Count(reply.Content, "line") != 100 {
		t.Fatalf("expected 100 output lines, got %d", strings.Count(reply.Content, "line"))
	}
}

func TestPublishCooldownPerGuild(t *testing.T) {
	service, deps := newTestService(t)
	input := MessageInput{GuildID: "guild-1", ChannelID: "chan-1", UserID: "u", Text: "!cargo publish\n```rust\nfn main(){}\n```"}
	output, err := service.HandleMessage(context.Background(), input)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if output.Reply.Content != "Done uploading your code to GitHub Gists [#ffffffffffffffffffffffffffffffff](<https://gist.github.com/rust-play/ffff>)" {
		t.Fatalf("unexpected reply %q", output.Reply.Content)
	}
	if _, err := service.HandleMessage(context.Background(), input); !errors.Is(err, boterr.ErrCooldown) {
		t.Fatalf("expected cooldown, got %v", err)
	}
	input.GuildID = "guild-2"
	if _, err := service.HandleMessage(context.Background(), input); err != nil {
		t.Fatalf("expected other guild to publish, got %v", err)
	}
	if _, err := service.HandleMessage(context.Background(), MessageInput{Text: "!share ```\nfn main(){}\n```"}); err != nil {
		t.Fatalf("share: %v", err)
	}
	if len(deps.playground.gistsCreated) != 3 {
		t.Fatalf("expected three gists, got %d", len(deps.playground.gistsCreated))
	}
}

func TestHandleCommandRoutesStructuredOptions(t *testing.T) {
	service, deps := newTestService(t)
	_, err := service.HandleCommand(context.Background(), CommandInput{
		Name:       "run",
		Subcommand: "gist",
		Options:    map[string]string{"id": testGistID, "mode": "release", "edition": "2015", "tests": "true"},
	})
	if err != nil {
		t.Fatalf("handle command: %v", err)
	}
	got := deps.playground.executed[0]
	if got.Mode != playground.ModeRelease || got.Edition != playground.Edition2015 || !got.Tests {
		t.Fatalf("unexpected request %+v", got)
	}

	reply, err := service.HandleCommand(context.Background(), CommandInput{Name: "bogus"})
	if err != nil || !reply.Ephemeral {
		t.Fatalf("expected ephemeral unsupported reply, got %+v %v", reply, err)
	}
}

func TestErrorReply(t *testing.T) {
	service, _ := newTestService(t)
	reply := service.ErrorReply(errors.New("redis: connection refused"))
	if strings.Contains(reply.Content, "redis") {
		t.Fatalf("expected upstream details to be hidden, got %q", reply.Content)
	}
	reply = service.ErrorReply(boterr.InvalidID("abc"))
	if !strings.Contains(reply.Content, "abc") {
		t.Fatalf("expected input error to be echoed, got %q", reply.Content)
	}
}
