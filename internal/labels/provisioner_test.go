package labels

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"testing"
	"time"

	"github.com/andywolf/csv2issues/internal/github"
)

type fakeAPI struct {
	existing []github.Label
	listErr  error
	// createErrs maps a label name to the error its creation returns.
	createErrs map[string]error
	created    []string
	listCalls  int
}

func (f *fakeAPI) ListLabels(ctx context.Context, owner, repo string) ([]github.Label, error) {
	f.listCalls++
	return f.existing, f.listErr
}

func (f *fakeAPI) CreateLabel(ctx context.Context, owner, repo string, label github.LabelRequest) (*github.Label, error) {
	f.created = append(f.created, label.Name)
	if err := f.createErrs[label.Name]; err != nil {
		return nil, err
	}
	return &github.Label{Name: label.Name, Color: label.Color}, nil
}

type recordingSleeper struct {
	delays []time.Duration
	err    error
}

func (r *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return r.err
}

func catalogNames() []string {
	var names []string
	for _, def := range Catalog() {
		names = append(names, def.Name)
	}
	return names
}

func TestCatalog(t *testing.T) {
	defs := Catalog()
	if len(defs) != 19 {
		t.Fatalf("expected 19 catalog entries, got %d", len(defs))
	}
	if defs[0].Name != "difficulty:easy" || defs[len(defs)-1].Name != "documentation" {
		t.Errorf("unexpected catalog order: first %s last %s", defs[0].Name, defs[len(defs)-1].Name)
	}

	seen := map[string]bool{}
	for _, def := range defs {
		if seen[def.Name] {
			t.Errorf("duplicate label %s", def.Name)
		}
		seen[def.Name] = true
		if len(def.Color) != 6 {
			t.Errorf("label %s has invalid color %q", def.Name, def.Color)
		}
	}
	for _, name := range []string{Baseline, Bug, GoodFirstIssue} {
		if !seen[name] {
			t.Errorf("catalog is missing %s", name)
		}
	}

	defs[0].Name = "mutated"
	if Catalog()[0].Name != "difficulty:easy" {
		t.Error("Catalog must return a copy")
	}
}

func TestEnsure_CreatesOnlyMissing(t *testing.T) {
	api := &fakeAPI{existing: []github.Label{
		{Name: "bug"},
		{Name: "difficulty:easy"},
		{Name: "unrelated"},
	}}
	sleeper := &recordingSleeper{}
	p := NewProvisioner(api, WithSleeper(sleeper.sleep), WithDelay(100*time.Millisecond))

	res := p.Ensure(context.Background(), "octo", "hello")

	var want []string
	for _, name := range catalogNames() {
		if name != "bug" && name != "difficulty:easy" {
			want = append(want, name)
		}
	}
	if !reflect.DeepEqual(api.created, want) {
		t.Errorf("created %v, want %v", api.created, want)
	}
	if !reflect.DeepEqual(res.Created, want) {
		t.Errorf("result created %v, want %v", res.Created, want)
	}
	if !reflect.DeepEqual(res.Present, []string{"difficulty:easy", "bug"}) {
		t.Errorf("unexpected present %v", res.Present)
	}

	// One pause between each pair of successive creations.
	if len(sleeper.delays) != len(want)-1 {
		t.Errorf("expected %d pauses, got %d", len(want)-1, len(sleeper.delays))
	}
	for _, d := range sleeper.delays {
		if d != 100*time.Millisecond {
			t.Errorf("unexpected delay %v", d)
		}
	}
}

func TestEnsure_AllPresent(t *testing.T) {
	var existing []github.Label
	for _, name := range catalogNames() {
		existing = append(existing, github.Label{Name: name})
	}
	api := &fakeAPI{existing: existing}
	sleeper := &recordingSleeper{}

	res := NewProvisioner(api, WithSleeper(sleeper.sleep)).Ensure(context.Background(), "octo", "hello")

	if len(api.created) != 0 {
		t.Errorf("expected no creation calls, got %v", api.created)
	}
	if len(sleeper.delays) != 0 {
		t.Errorf("expected no pauses, got %d", len(sleeper.delays))
	}
	if len(res.Present) != len(existing) {
		t.Errorf("expected %d present, got %d", len(existing), len(res.Present))
	}
}

func TestEnsure_ListFailureTreatedAsEmpty(t *testing.T) {
	api := &fakeAPI{listErr: &github.APIError{StatusCode: http.StatusForbidden, Message: "Forbidden"}}
	sleeper := &recordingSleeper{}

	res := NewProvisioner(api, WithSleeper(sleeper.sleep)).Ensure(context.Background(), "octo", "hello")

	if res.ListErr == nil {
		t.Error("expected ListErr to be recorded")
	}
	if !reflect.DeepEqual(api.created, catalogNames()) {
		t.Errorf("expected every catalog label to be attempted, got %v", api.created)
	}
}

func TestEnsure_FailuresAreSkipped(t *testing.T) {
	alreadyExists := &github.APIError{
		StatusCode: http.StatusUnprocessableEntity,
		Message:    "Validation Failed",
		Errors:     []github.FieldError{{Resource: "Label", Code: "already_exists", Field: "name"}},
	}
	api := &fakeAPI{createErrs: map[string]error{
		"priority:high":   alreadyExists,
		"component:store": &github.APIError{StatusCode: http.StatusInternalServerError, Message: "boom"},
	}}

	res := NewProvisioner(api, WithSleeper((&recordingSleeper{}).sleep)).Ensure(context.Background(), "octo", "hello")

	if len(api.created) != len(catalogNames()) {
		t.Errorf("expected all %d labels attempted, got %d", len(catalogNames()), len(api.created))
	}
	if !reflect.DeepEqual(res.Raced, []string{"priority:high"}) {
		t.Errorf("unexpected raced %v", res.Raced)
	}
	if len(res.Failed) != 1 || res.Failed[0].Name != "component:store" {
		t.Fatalf("unexpected failures %v", res.Failed)
	}
	if len(res.Created) != len(catalogNames())-2 {
		t.Errorf("unexpected created count %d", len(res.Created))
	}
}

func TestEnsure_Interrupted(t *testing.T) {
	api := &fakeAPI{}
	sleeper := &recordingSleeper{err: context.Canceled}

	res := NewProvisioner(api, WithSleeper(sleeper.sleep)).Ensure(context.Background(), "octo", "hello")

	if !res.Interrupted {
		t.Error("expected Interrupted")
	}
	if len(api.created) != 1 {
		t.Errorf("expected a single creation before the pause failed, got %v", api.created)
	}
}

func TestEnsure_CancelledDuringCreate(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	api := &fakeAPI{createErrs: map[string]error{
		"difficulty:easy": &github.TransportError{Err: errors.New("canceled")},
	}}
	cancel()

	res := NewProvisioner(api, WithSleeper((&recordingSleeper{}).sleep)).Ensure(ctx, "octo", "hello")

	if !res.Interrupted {
		t.Error("expected Interrupted")
	}
	if len(res.Failed) != 0 {
		t.Errorf("cancellation is not a label failure: %v", res.Failed)
	}
}

func TestPlan(t *testing.T) {
	api := &fakeAPI{existing: []github.Label{{Name: "hacktoberfest"}}}
	missing := NewProvisioner(api).Plan(context.Background(), "octo", "hello")

	if len(missing) != len(catalogNames())-1 {
		t.Errorf("expected %d missing, got %d", len(catalogNames())-1, len(missing))
	}
	for _, def := range missing {
		if def.Name == "hacktoberfest" {
			t.Error("present label reported as missing")
		}
	}
	if len(api.created) != 0 {
		t.Error("Plan must not create labels")
	}
}
