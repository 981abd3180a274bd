package guard

import (
	"testing"

	"github.com/MrEthical07/goConsole/session"
)

var allRoles = []session.Role{session.RoleUnknown, session.RoleGuest, session.RoleNormal, session.RoleVerified, session.RoleAdmin}

func TestDecideUnauthenticatedNeverAllowsProtectedRoutes(t *testing.T) {
	table := DefaultTable()
	for _, r := range table.Routes() {
		if !r.RequiresAuth {
			continue
		}
		step := Decide(Input{Session: session.Session{Role: session.RoleGuest}, Route: r, Paths: table.Paths()}, DefaultNotices())
		if step.Kind != StepDecided {
			t.Fatalf("%s: expected a final decision, got step %v", r.Path, step.Kind)
		}
		d := step.Decision
		if d.Kind != Block || d.Redirect != "/" || d.Reason != ReasonUnauthenticated || !d.HasNotice() {
			t.Fatalf("%s: expected block to entry with notice, got %+v", r.Path, d)
		}
	}

	unknown := table.Resolve("/nowhere")
	step := Decide(Input{Session: session.Session{Role: session.RoleGuest}, Route: unknown, Paths: table.Paths()}, DefaultNotices())
	if step.Decision.Kind != Block {
		t.Fatalf("unknown route must require auth, got %+v", step.Decision)
	}
}

func TestDecideTable(t *testing.T) {
	table := DefaultTable()
	route := func(p string) Route {
		r, err := table.Lookup(p)
		if err != nil {
			t.Fatalf("lookup %s: %v", p, err)
		}
		return r
	}
	authed := func(role session.Role) session.Session {
		return session.Session{Token: "t", Role: role}
	}

	tests := []struct {
		name     string
		sess     session.Session
		path     string
		step     StepKind
		kind     Kind
		redirect string
		reason   Reason
	}{
		{name: "guest entry", sess: session.Session{Role: session.RoleGuest}, path: "/", kind: Allow, reason: ReasonAllowed},
		{name: "unknown role needs profile", sess: authed(session.RoleUnknown), path: "/road", step: StepNeedProfile},
		{name: "unknown role on entry needs profile", sess: authed(session.RoleUnknown), path: "/", step: StepNeedProfile},
		{name: "normal on admin route", sess: authed(session.RoleNormal), path: "/user-management", kind: Block, redirect: "/home", reason: ReasonInsufficientRole},
		{name: "verified on admin route", sess: authed(session.RoleVerified), path: "/user-management", kind: Block, redirect: "/home", reason: ReasonInsufficientRole},
		{name: "admin on admin route", sess: authed(session.RoleAdmin), path: "/user-management", kind: Allow, reason: ReasonAllowed},
		{name: "normal on face route", sess: authed(session.RoleNormal), path: "/face", step: StepNeedApproval},
		{name: "verified on face route", sess: authed(session.RoleVerified), path: "/face", kind: Allow, reason: ReasonAllowed},
		{name: "admin on face route", sess: authed(session.RoleAdmin), path: "/face", kind: Allow, reason: ReasonAllowed},
		{name: "signed in on entry", sess: authed(session.RoleNormal), path: "/", kind: Redirect, redirect: "/home", reason: ReasonGuestOnly},
		{name: "traffic child", sess: authed(session.RoleNormal), path: "/traffic/heatmap", kind: Allow, reason: ReasonAllowed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			step := Decide(Input{Session: tc.sess, Route: route(tc.path), Paths: table.Paths()}, DefaultNotices())
			if step.Kind != tc.step {
				t.Fatalf("step = %v, want %v", step.Kind, tc.step)
			}
			if tc.step != StepDecided {
				return
			}
			d := step.Decision
			if d.Kind != tc.kind || d.Redirect != tc.redirect || d.Reason != tc.reason {
				t.Fatalf("decision = %+v, want kind=%v redirect=%q reason=%s", d, tc.kind, tc.redirect, tc.reason)
			}
		})
	}
}

func TestDecideIsDeterministic(t *testing.T) {
	table := DefaultTable()
	for _, r := range table.Routes() {
		for _, role := range allRoles {
			in := Input{Session: session.Session{Token: "t", Role: role}, Route: r, Paths: table.Paths()}
			first := Decide(in, DefaultNotices())
			for i := 0; i < 3; i++ {
				if got := Decide(in, DefaultNotices()); got != first {
					t.Fatalf("%s/%v: decision changed between calls: %+v vs %+v", r.Path, role, first, got)
				}
			}
		}
	}
}

func TestApprovalActionCoversEveryStatus(t *testing.T) {
	want := map[session.ApprovalStatus]ApprovalAction{
		session.ApprovalNone:          ActionAllow,
		session.ApprovalNotRegistered: ActionAllow,
		session.ApprovalPending:       ActionInformPending,
		session.ApprovalApproved:      ActionAcknowledgeLogout,
		session.ApprovalRejected:      ActionConfirmCleanup,
	}
	for status, action := range want {
		if got := ApprovalActionFor(status); got != action {
			t.Fatalf("%v: got action %v, want %v", status, got, action)
		}
	}
}

func TestParseApprovalFailurePolicy(t *testing.T) {
	if p, ok := ParseApprovalFailurePolicy("fail_closed"); !ok || p != FailClosed {
		t.Fatalf("fail_closed: %v %v", p, ok)
	}
	if p, ok := ParseApprovalFailurePolicy(""); !ok || p != FailOpen {
		t.Fatalf("default: %v %v", p, ok)
	}
	if _, ok := ParseApprovalFailurePolicy("maybe"); ok {
		t.Fatal("expected invalid policy rejected")
	}
}
