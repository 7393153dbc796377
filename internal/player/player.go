package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os/exec"
	"sync"
	"time"

	"encore/internal/music"

	"github.com/bwmarrin/discordgo"
	"github.com/jonas747/ogg"
)

var errPlayerClosed = errors.New("player closed")

// processWaitDelay bounds how long Wait lingers on ffmpeg's pipes after a kill.
const processWaitDelay = 2 * time.Second

// StreamSource turns a track into something ffmpeg can open.
type StreamSource interface {
	StreamURL(ctx context.Context, t music.Track) (string, error)
}

// Player streams one resource at a time to a voice connection.
type Player struct {
	vc      *discordgo.VoiceConnection
	source  StreamSource
	opts    EncodeOptions
	onEvent func(music.PlayerEvent)

	mu      sync.Mutex
	status  music.PlayerStatus
	current *stream
	closed  bool
}

// stream is the state of one resource's pipeline.
type stream struct {
	res     music.Resource
	ctx     context.Context
	cancel  context.CancelFunc
	scaler  *PCMVolume
	pcm     *io.PipeWriter
	resumed chan struct{} // non-nil while paused; closed on unpause
	stopped bool
}

func newPlayer(vc *discordgo.VoiceConnection, source StreamSource, opts EncodeOptions, onEvent func(music.PlayerEvent)) *Player {
	return &Player{
		vc:      vc,
		source:  source,
		opts:    opts.withDefaults(),
		onEvent: onEvent,
	}
}

// Play starts streaming res, cancelling whatever was streaming before.
func (p *Player) Play(res music.Resource) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errPlayerClosed
	}
	if p.current != nil {
		p.current.stopped = true
		p.current.cancel()
	}

	ctx, cancel := context.WithCancel(context.Background())
	pr, pw := io.Pipe()
	st := &stream{
		res:    res,
		ctx:    ctx,
		cancel: cancel,
		scaler: NewPCMVolume(pr),
		pcm:    pw,
	}
	st.scaler.SetVolume(res.Volume)

	p.current = st
	p.status = music.StatusBuffering
	go p.run(st)

	log.Printf("[PLAYER] Starting %q (resource %d)", res.Track.Title, res.ID)
	return nil
}

// run drives the pipeline for st and reports how it ended.
func (p *Player) run(st *stream) {
	err := p.stream(st)
	_ = st.pcm.Close()

	p.mu.Lock()
	stopped := st.stopped
	if p.current == st {
		p.current = nil
		p.status = music.StatusIdle
	}
	p.mu.Unlock()

	ev := music.PlayerEvent{Kind: music.EventIdle, ResourceID: st.res.ID}
	switch {
	case stopped:
		log.Printf("[PLAYER] Stopped %q", st.res.Track.Title)
	case err != nil:
		log.Printf("[PLAYER] ERROR: %q: %v", st.res.Track.Title, err)
		ev.Kind = music.EventError
		ev.Err = err
	default:
		log.Printf("[PLAYER] Finished %q", st.res.Track.Title)
	}
	p.onEvent(ev)
}

func (p *Player) stream(st *stream) error {
	defer st.cancel()

	input, err := p.source.StreamURL(st.ctx, st.res.Track)
	if err != nil {
		return fmt.Errorf("resolve stream: %w", err)
	}

	dec := exec.CommandContext(st.ctx, p.opts.FFmpegPath, decodeArgs(input)...)
	dec.WaitDelay = processWaitDelay
	decOut, err := dec.StdoutPipe()
	if err != nil {
		return fmt.Errorf("decoder stdout: %w", err)
	}
	if err := dec.Start(); err != nil {
		return fmt.Errorf("start decoder: %w", err)
	}
	defer func() {
		st.cancel()
		_ = dec.Wait()
	}()

	hdr, err := ReadWavHeader(decOut)
	if err != nil {
		return fmt.Errorf("decoder output: %w", err)
	}
	if err := hdr.CheckDiscordPCM(); err != nil {
		return err
	}

	// PCM pump: decoder -> volume stage -> encoder.
	go func() {
		_, err := io.Copy(st.pcm, decOut)
		st.pcm.CloseWithError(err)
	}()

	enc := exec.CommandContext(st.ctx, p.opts.FFmpegPath, encodeArgs(p.opts)...)
	enc.WaitDelay = processWaitDelay
	enc.Stdin = st.scaler
	encOut, err := enc.StdoutPipe()
	if err != nil {
		return fmt.Errorf("encoder stdout: %w", err)
	}
	if err := enc.Start(); err != nil {
		return fmt.Errorf("start encoder: %w", err)
	}
	defer func() {
		st.cancel()
		_ = enc.Wait()
	}()

	p.mu.Lock()
	if p.current == st {
		p.status = music.StatusPlaying
		if st.resumed != nil {
			p.status = music.StatusPaused
		}
	}
	p.mu.Unlock()

	_ = p.vc.Speaking(true)
	defer p.vc.Speaking(false)

	decoder := ogg.NewPacketDecoder(ogg.NewDecoder(encOut))
	next := func() ([]byte, error) {
		packet, _, err := decoder.Decode()
		return packet, err
	}
	return p.sendPackets(st, next, p.vc.OpusSend)
}

// sendPackets forwards Opus packets to out until the source ends. The first
// two packets of an Ogg/Opus stream are the OpusHead and OpusTags headers.
func (p *Player) sendPackets(st *stream, next func() ([]byte, error), out chan<- []byte) error {
	headers := 2
	for {
		packet, err := next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if st.ctx.Err() != nil {
				return st.ctx.Err()
			}
			return fmt.Errorf("read opus packet: %w", err)
		}
		if headers > 0 {
			headers--
			continue
		}

		if err := p.waitUnpaused(st); err != nil {
			return err
		}
		select {
		case out <- packet:
		case <-st.ctx.Done():
			return st.ctx.Err()
		}
	}
}

func (p *Player) waitUnpaused(st *stream) error {
	p.mu.Lock()
	ch := st.resumed
	p.mu.Unlock()
	if ch == nil {
		return nil
	}
	select {
	case <-ch:
		return nil
	case <-st.ctx.Done():
		return st.ctx.Err()
	}
}

// Pause holds back packets of the current resource.
func (p *Player) Pause() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil || p.current.resumed != nil {
		return false
	}
	p.current.resumed = make(chan struct{})
	p.status = music.StatusPaused
	log.Printf("[PLAYER] Paused playback")
	return true
}

// Unpause releases a paused resource.
func (p *Player) Unpause() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil || p.current.resumed == nil {
		return false
	}
	close(p.current.resumed)
	p.current.resumed = nil
	p.status = music.StatusPlaying
	log.Printf("[PLAYER] Resumed playback")
	return true
}

// Stop cancels the current resource. The idle event follows from run.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != nil {
		p.current.stopped = true
		p.current.cancel()
	}
}

// SetVolume changes the gain of the current resource without restarting it.
func (p *Player) SetVolume(v float64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return false
	}
	p.current.scaler.SetVolume(v)
	log.Printf("[PLAYER] Volume updated to %.2f", v)
	return true
}

// Volume returns the gain of the current resource.
func (p *Player) Volume() (float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return 0, false
	}
	return p.current.scaler.Volume(), true
}

// Status reports what the player is doing right now.
func (p *Player) Status() music.PlayerStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Close stops the current resource and refuses further ones. It does not
// wait for the pipeline to exit.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	if p.current != nil {
		p.current.stopped = true
		p.current.cancel()
	}
}
