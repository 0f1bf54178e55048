package gui

import (
	"testing"

	"fyne.io/fyne/v2/test"

	"screen-ocr-overlay/src/mirror"
)

func TestConsentAnswer(t *testing.T) {
	d := &ConsentDialog{newToken: func() string { return "token-42" }}

	yes := d.answer(true)
	if yes.ResultCode != mirror.ResultOK || yes.Token != "token-42" || !yes.Granted() {
		t.Errorf("answer(true) = %+v", yes)
	}
	no := d.answer(false)
	if no.ResultCode != mirror.ResultCanceled || no.Token != "" || no.Granted() {
		t.Errorf("answer(false) = %+v", no)
	}
}

func TestConsentTokensAreUnique(t *testing.T) {
	d := NewConsentDialog(nil)
	a, b := d.answer(true), d.answer(true)
	if a.Token == "" || a.Token == b.Token {
		t.Errorf("tokens %q and %q should be distinct and non-empty", a.Token, b.Token)
	}
}

func TestOverlaySettingsResume(t *testing.T) {
	s := NewOverlaySettings(nil)
	if s.CanDrawOverlays() {
		t.Fatal("overlay permission should start denied")
	}

	resumed := make(chan bool, 1)
	s.SetOnResume(func() { resumed <- s.CanDrawOverlays() })

	s.setGranted(true)
	s.closed()
	if got := <-resumed; !got {
		t.Error("resume should observe the granted permission")
	}
}

func TestStartButton(t *testing.T) {
	a := test.NewApp()
	defer a.Quit()

	started := 0
	btn := newStartButton(func() { started++ })
	test.Tap(btn)
	if started != 1 {
		t.Errorf("onStart called %d times, want 1", started)
	}
	if btn.Text != StartLabel {
		t.Errorf("button label = %q", btn.Text)
	}
}
