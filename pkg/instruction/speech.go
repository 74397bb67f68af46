package instruction

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jwebster45206/dialogue-engine/pkg/capability"
	"github.com/jwebster45206/dialogue-engine/pkg/textfilter"
	"github.com/jwebster45206/dialogue-engine/pkg/transcript"
)

// NoTalker is the talker keyword for narration without a name box.
const NoTalker = "none"

// Speech shows one line of dialogue and waits for the reader.
type Speech struct {
	Talker      string
	Text        string
	Voice       string
	CPS         int
	Unskippable bool
	HideName    bool
}

func (s *Speech) Kind() Kind               { return KindSpeech }
func (s *Speech) Requires() capability.Set { return capability.None }
func (s *Speech) Suspends() bool           { return true }

func (s *Speech) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "speech %s %q", s.Talker, s.Text)
	if s.Voice != "" {
		fmt.Fprintf(&b, " voice=%s", s.Voice)
	}
	if s.CPS > 0 {
		fmt.Fprintf(&b, " cps=%d", s.CPS)
	}
	if s.Unskippable {
		b.WriteString(" unskippable")
	}
	if s.HideName {
		b.WriteString(" hidename")
	}
	return b.String()
}

func (s *Speech) Execute(ctx context.Context, rt Runtime) error {
	host := rt.Host()
	if host == nil || host.Display == nil {
		return ErrNoDisplayer
	}

	talker, isPlayer := ResolveTalker(rt, s.Talker)
	text := rt.FilterText(textfilter.Substitute(s.Text, Resolver(rt)))

	voice := ""
	if s.Voice != "" && host.Has(capability.Audio) {
		voice = s.Voice
		if err := host.Audio.PlayVoice(ctx, voice); err != nil {
			return fmt.Errorf("play voice %q: %w", voice, err)
		}
	}

	rt.Record(ctx, transcript.Entry{
		Talker:   talker,
		Text:     text,
		Voice:    voice,
		IsPlayer: isPlayer,
		Phase:    rt.Phase(),
		At:       time.Now(),
	})

	return host.Display.ShowText(ctx, capability.Line{
		Talker:      talker,
		Text:        text,
		CPS:         s.CPS,
		Unskippable: s.Unskippable,
		HideName:    s.HideName,
		IsPlayer:    isPlayer,
		Voice:       voice,
	})
}

// ResolveTalker maps a talker keyword to the name shown to the reader.
func ResolveTalker(rt Runtime, talker string) (name string, isPlayer bool) {
	host := rt.Host()
	switch {
	case talker == rt.PlayerKeyword():
		return host.PlayerName, true
	case talker == NoTalker:
		return "", false
	}
	if host.Roster != nil {
		if n, ok := host.Roster.CharacterName(talker); ok {
			return n, false
		}
	}
	return talker, false
}

// Resolver looks up {keyword} replacements: the player keyword, then
// character names, then variable values.
func Resolver(rt Runtime) textfilter.Resolver {
	host := rt.Host()
	return func(keyword string) (string, bool) {
		if keyword == rt.PlayerKeyword() {
			return host.PlayerName, true
		}
		if host.Roster != nil {
			if n, ok := host.Roster.CharacterName(keyword); ok {
				return n, true
			}
		}
		if host.Variables != nil {
			if v, err := host.Variables.Get(keyword); err == nil {
				return v.Value.String(), true
			}
		}
		return "", false
	}
}
