package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/matheus3301/chatsync/internal/call"
	"github.com/matheus3301/chatsync/internal/client"
	"github.com/matheus3301/chatsync/internal/model"
	"github.com/matheus3301/chatsync/internal/relation"
	"github.com/matheus3301/chatsync/internal/session"
)

func main() {
	sessionFlag := flag.String("session", "", "session user id (overrides config default)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	flag.Parse()

	sessionName := session.Resolve(*sessionFlag)
	if err := session.ValidateName(sessionName); err != nil {
		fail(err)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	socketPath := session.SocketPath(sessionName)
	c, err := client.New(socketPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: cannot connect to daemon for session %q: %v\n", sessionName, err)
		os.Exit(1)
	}
	defer func() { _ = c.Close() }()

	r := &runner{c: c, json: *jsonFlag}
	if err := r.run(args[0], args[1:]); err != nil {
		fail(err)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: chatsyncctl [--session <user>] [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  status                      Show session status")
	fmt.Fprintln(os.Stderr, "  register <name> [image]     Publish the session user's profile")
	fmt.Fprintln(os.Stderr, "  profile [user]              Show a profile")
	fmt.Fprintln(os.Stderr, "  conversations [--watch]     List conversations")
	fmt.Fprintln(os.Stderr, "  read <peer>                 Mark a conversation read")
	fmt.Fprintln(os.Stderr, "  send <peer> <text>          Send a text message")
	fmt.Fprintln(os.Stderr, "  messages <peer>             Follow a conversation")
	fmt.Fprintln(os.Stderr, "  call <peer> [--video]       Start a call and follow it")
	fmt.Fprintln(os.Stderr, "  accept|reject|end <callId>  Answer or finish a call")
	fmt.Fprintln(os.Stderr, "  calls                       Follow incoming calls")
	fmt.Fprintln(os.Stderr, "  block|unblock <peer>        Change the block flag")
	fmt.Fprintln(os.Stderr, "  mute|unmute <peer>          Change the mute flag")
	fmt.Fprintln(os.Stderr, "  nickname <peer> <name>      Set a nickname")
	fmt.Fprintln(os.Stderr, "  can <peer>                  Check whether messaging is allowed")
}

type runner struct {
	c    *client.Client
	json bool
}

func (r *runner) run(cmd string, args []string) error {
	switch cmd {
	case "status":
		return r.status()
	case "register":
		if len(args) < 1 {
			return usage("register <name> [image]")
		}
		image := ""
		if len(args) > 1 {
			image = args[1]
		}
		return r.register(args[0], image)
	case "profile":
		user := ""
		if len(args) > 0 {
			user = args[0]
		}
		return r.profile(user)
	case "conversations":
		fs := flag.NewFlagSet("conversations", flag.ContinueOnError)
		watch := fs.Bool("watch", false, "follow updates")
		if err := fs.Parse(args); err != nil {
			return err
		}
		return r.conversations(*watch)
	case "read":
		if len(args) != 1 {
			return usage("read <peer>")
		}
		return r.markRead(args[0])
	case "send":
		if len(args) < 2 {
			return usage("send <peer> <text>")
		}
		return r.send(args[0], strings.Join(args[1:], " "))
	case "messages":
		if len(args) != 1 {
			return usage("messages <peer>")
		}
		return r.messages(args[0])
	case "call":
		fs := flag.NewFlagSet("call", flag.ContinueOnError)
		video := fs.Bool("video", false, "video call")
		if len(args) < 1 {
			return usage("call <peer> [--video]")
		}
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		return r.call(args[0], *video)
	case "accept", "reject", "end":
		if len(args) != 1 {
			return usage(cmd + " <callId>")
		}
		return r.callOp(cmd, args[0])
	case "calls":
		return r.calls()
	case "block", "unblock":
		if len(args) != 1 {
			return usage(cmd + " <peer>")
		}
		return r.verdict(func(ctx context.Context) (relation.Verdict, error) {
			return r.c.SetBlocked(ctx, args[0], cmd == "block")
		})
	case "mute", "unmute":
		if len(args) != 1 {
			return usage(cmd + " <peer>")
		}
		return r.verdict(func(ctx context.Context) (relation.Verdict, error) {
			return r.c.SetMuted(ctx, args[0], cmd == "mute")
		})
	case "nickname":
		if len(args) < 2 {
			return usage("nickname <peer> <name>")
		}
		return r.verdict(func(ctx context.Context) (relation.Verdict, error) {
			return r.c.SetNickname(ctx, args[0], strings.Join(args[1:], " "))
		})
	case "can":
		if len(args) != 1 {
			return usage("can <peer>")
		}
		return r.verdict(func(ctx context.Context) (relation.Verdict, error) {
			return r.c.CanInteract(ctx, args[0])
		})
	default:
		printUsage()
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

func unaryCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}

// watchCtx lives until interrupted.
func watchCtx() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func (r *runner) status() error {
	ctx, cancel := unaryCtx()
	defer cancel()
	st, err := r.c.Status(ctx)
	if err != nil {
		return err
	}
	if r.json {
		outputJSON(st)
		return nil
	}
	fmt.Printf("Session:       %s\n", st.Session)
	fmt.Printf("Status:        %s (%s)\n", st.Status, st.StatusMessage)
	fmt.Printf("Since:         %s\n", st.Since.Format(time.RFC3339))
	fmt.Printf("Uptime:        %s\n", st.Uptime.Round(time.Second))
	fmt.Printf("Store:         %s\n", st.StorePath)
	fmt.Printf("Conversations: %d (%d unread)\n", st.ConversationCount, st.UnreadCount)
	return nil
}

func (r *runner) register(name, image string) error {
	ctx, cancel := unaryCtx()
	defer cancel()
	p, err := r.c.RegisterProfile(ctx, model.UserProfile{Name: name, Image: image})
	if err != nil {
		return err
	}
	return r.printProfile(p)
}

func (r *runner) profile(user string) error {
	ctx, cancel := unaryCtx()
	defer cancel()
	p, err := r.c.GetProfile(ctx, user)
	if err != nil {
		return err
	}
	return r.printProfile(p)
}

func (r *runner) printProfile(p model.UserProfile) error {
	if r.json {
		outputJSON(p)
		return nil
	}
	fmt.Printf("ID:    %s\n", p.ID)
	fmt.Printf("Name:  %s\n", p.Name)
	if p.Image != "" {
		fmt.Printf("Image: %s\n", p.Image)
	}
	return nil
}

func (r *runner) conversations(watch bool) error {
	if !watch {
		ctx, cancel := unaryCtx()
		defer cancel()
		list, err := r.c.ListConversations(ctx)
		if err != nil {
			return err
		}
		r.printConversations(list)
		return nil
	}
	ctx, cancel := watchCtx()
	defer cancel()
	return r.c.WatchConversations(ctx, func(list []model.ConversationSummary) {
		if !r.json {
			fmt.Printf("--- %s\n", time.Now().Format("15:04:05"))
		}
		r.printConversations(list)
	})
}

func (r *runner) printConversations(list []model.ConversationSummary) {
	if r.json {
		outputJSON(list)
		return
	}
	if len(list) == 0 {
		fmt.Println("No conversations.")
		return
	}
	for _, s := range list {
		name := s.PeerName
		if name == "" {
			name = s.PeerID
		}
		fmt.Printf("%-20s %-5s %3d  %s\n", name, formatTime(s.LastTimestamp), s.UnreadCount, s.LastMessage)
	}
}

func (r *runner) markRead(peer string) error {
	ctx, cancel := unaryCtx()
	defer cancel()
	if err := r.c.MarkRead(ctx, peer); err != nil {
		return err
	}
	if !r.json {
		fmt.Printf("Marked %s read.\n", peer)
	}
	return nil
}

func (r *runner) send(peer, text string) error {
	ctx, cancel := unaryCtx()
	defer cancel()
	msg, err := r.c.SendMessage(ctx, peer, model.KindText, text, "")
	if err != nil {
		return err
	}
	if r.json {
		outputJSON(msg)
		return nil
	}
	fmt.Printf("Sent to %s at %s.\n", peer, formatTime(msg.Timestamp))
	return nil
}

func (r *runner) messages(peer string) error {
	ctx, cancel := watchCtx()
	defer cancel()
	return r.c.WatchMessages(ctx, peer, func(msgs []model.Message, previous int) {
		// Print only what arrived since the last update.
		start := min(previous, len(msgs))
		for _, m := range msgs[start:] {
			if r.json {
				outputJSON(m)
				continue
			}
			fmt.Printf("[%s] %s: %s\n", formatTime(m.Timestamp), m.SenderID, m.Body)
		}
	})
}

func (r *runner) call(peer string, video bool) error {
	ctx, cancel := watchCtx()
	defer cancel()
	sess, err := r.c.InitiateCall(ctx, peer, video)
	if err != nil {
		return err
	}
	r.printCall(sess)
	return r.c.WatchCall(ctx, sess.CallID, func(e call.StatusChanged) {
		r.printEvent(e)
	})
}

func (r *runner) callOp(op, callID string) error {
	ctx, cancel := unaryCtx()
	defer cancel()
	var (
		sess model.CallSession
		err  error
	)
	switch op {
	case "accept":
		sess, err = r.c.AcceptCall(ctx, callID)
	case "reject":
		sess, err = r.c.RejectCall(ctx, callID)
	default:
		sess, err = r.c.EndCall(ctx, callID)
	}
	if err != nil {
		return err
	}
	r.printCall(sess)
	return nil
}

func (r *runner) printCall(sess model.CallSession) {
	if r.json {
		outputJSON(sess)
		return
	}
	kind := "voice"
	if sess.IsVideo {
		kind = "video"
	}
	fmt.Printf("Call %s (%s) %s -> %s: %s\n", sess.CallID, kind, sess.CallerID, sess.ReceiverID, sess.Status)
}

func (r *runner) calls() error {
	ctx, cancel := watchCtx()
	defer cancel()
	return r.c.WatchIncomingCalls(ctx, r.printEvent)
}

func (r *runner) printEvent(e call.Event) {
	if r.json {
		outputJSON(e)
		return
	}
	switch e := e.(type) {
	case call.IncomingCall:
		kind := "voice"
		if e.IsVideo {
			kind = "video"
		}
		fmt.Printf("Incoming %s call %s from %s\n", kind, e.ID, e.Caller.DisplayName())
	case call.StatusChanged:
		fmt.Printf("Call %s: %s\n", e.ID, e.Status)
	}
}

func (r *runner) verdict(fn func(ctx context.Context) (relation.Verdict, error)) error {
	ctx, cancel := unaryCtx()
	defer cancel()
	v, err := fn(ctx)
	if err != nil {
		return err
	}
	if r.json {
		outputJSON(map[string]any{
			"allowed":          v.Allowed(),
			"blocked_by_me":    v.BlockedByMe,
			"blocked_by_other": v.BlockedByOther,
			"reason":           v.Reason(),
		})
		return nil
	}
	if v.Allowed() {
		fmt.Println("Allowed.")
		return nil
	}
	fmt.Println(v.Reason())
	return nil
}

func usage(s string) error {
	return fmt.Errorf("usage: chatsyncctl %s", s)
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "error: %s\n", client.Message(err))
	os.Exit(1)
}

func formatTime(ms int64) string {
	if ms == 0 {
		return "-"
	}
	return time.UnixMilli(ms).Format("15:04")
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "json encode error: %v\n", err)
	}
}
