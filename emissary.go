package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/inconshreveable/log15"
	"github.com/psanford/emissary/config"
	"github.com/psanford/emissary/internal/destination"
	"github.com/psanford/emissary/internal/destwebhook"
	"github.com/psanford/emissary/internal/jqfilter"
	"github.com/psanford/emissary/internal/payload"
)

var version = "dev"

func main() {
	var (
		msg       string
		textField string

		confPath    = flag.String("config", "", "config file, local path or s3://bucket/key (default $HOME/.config/emissary.ini)")
		debug       = flag.Bool("debug", false, "enable debug logging")
		showVersion = flag.Bool("version", false, "print version")
	)
	flag.StringVar(&msg, "m", "", "message to send, read from stdin if unset")
	flag.StringVar(&msg, "msg", "", "message to send, read from stdin if unset")
	flag.StringVar(&textField, "t", "", "payload field that holds the message, overrides textField")
	flag.StringVar(&textField, "txt", "", "payload field that holds the message, overrides textField")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}

	lvl := log15.LvlInfo
	if *debug {
		lvl = log15.LvlDebug
	}
	handler := log15.LvlFilterHandler(lvl, log15.StreamHandler(os.Stderr, log15.LogfmtFormat()))
	log15.Root().SetHandler(handler)
	lgr := log15.New()

	path := *confPath
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			lgr.Error("home_dir_err", "err", err)
			fmt.Printf("[-] Error sending message: %s\n", err)
			os.Exit(1)
		}
		path = filepath.Join(home, ".config", "emissary.ini")
	}

	msg, err := resolveMessage(flag.CommandLine, msg, os.Stdin)
	if err != nil {
		lgr.Error("read_message_err", "err", err)
		fmt.Printf("[-] Error sending message: %s\n", err)
		os.Exit(1)
	}

	e := newEmissary()
	if !e.run(lgr, os.Stdout, path, msg, textField) {
		os.Exit(1)
	}
}

// resolveMessage returns the -m/-msg value when either flag was given, even
// if empty, and otherwise reads the message from stdin.
func resolveMessage(fs *flag.FlagSet, msg string, stdin io.Reader) (string, error) {
	if !isFlagSet(fs, "m", "msg") {
		return readMessage(stdin)
	}
	if strings.TrimSpace(msg) == "" {
		return "", errors.New("empty message")
	}
	return msg, nil
}

func isFlagSet(fs *flag.FlagSet, names ...string) bool {
	var found bool
	fs.Visit(func(f *flag.Flag) {
		for _, n := range names {
			if f.Name == n {
				found = true
			}
		}
	})
	return found
}

// readMessage reads a single line and trims surrounding whitespace.
func readMessage(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", errors.New("empty message")
	}
	return line, nil
}

func newEmissary() *emissary {
	loaders := []destination.Loader{
		destwebhook.NewLoader(),
	}

	e := emissary{
		loaders: make(map[string]destination.Loader),
	}
	for _, l := range loaders {
		e.loaders[l.Type()] = l
	}
	return &e
}

type emissary struct {
	loaders map[string]destination.Loader
}

type prepared struct {
	channel *config.Channel
	payload payload.Payload
	filter  *jqfilter.Filter
}

var errWebhookNotSet = errors.New("webhook was not set")

// run prepares and sends one message, writing the status line to out.
func (e *emissary) run(lgr log15.Logger, out io.Writer, confPath, msg, textField string) bool {
	prep, err := e.prepare(lgr, confPath, msg, textField)
	if err != nil {
		fmt.Fprintf(out, "[-] Error sending message: %s\n", err)
		return false
	}

	err = e.send(lgr, prep)
	switch {
	case errors.Is(err, errWebhookNotSet):
		fmt.Fprintln(out, "[-] Webhook was not set...")
		return false
	case err != nil:
		fmt.Fprintf(out, "[-] Error sending message: %s\n", err)
		return false
	}

	fmt.Fprintln(out, "[+] Message Sent!")
	return true
}

func (e *emissary) prepare(lgr log15.Logger, confPath, msg, textField string) (*prepared, error) {
	lgr = lgr.New("config", confPath)

	store, err := config.Load(confPath)
	if err != nil {
		lgr.Error("load_config_err", "err", err)
		return nil, err
	}

	ch, err := store.Resolve()
	if err != nil {
		lgr.Error("resolve_channel_err", "err", err)
		return nil, err
	}
	lgr = lgr.New("channel", ch.Name)

	p, skipped, err := payload.Build(ch, msg, textField)
	if err != nil {
		lgr.Error("build_payload_err", "err", err)
		return nil, err
	}
	for _, s := range skipped {
		lgr.Warn("data_member_skipped", "key", s.Key, "reason", s.Reason)
	}

	prep := prepared{
		channel: ch,
		payload: p,
	}

	if ch.Filter != "" {
		prep.filter, err = jqfilter.Parse(ch.Filter)
		if err != nil {
			lgr.Error("parse_filter_err", "err", err)
			return nil, err
		}
	}

	lgr.Debug("payload_prepared", "fields", strings.Join(p.Fields(), ","))
	return &prep, nil
}

func (e *emissary) send(lgr log15.Logger, prep *prepared) error {
	// data may have replaced the webhook field; the payload value is the one used
	w, ok := prep.payload[payload.WebhookField]
	if !ok || w.String() == "" {
		lgr.Error("webhook_not_set", "channel", prep.channel.Name)
		return errWebhookNotSet
	}

	ch := *prep.channel
	ch.Webhook = w.String()

	loader := e.loaders[ch.Type]
	if loader == nil {
		lgr.Error("invalid_channel_type", "channel", ch.Name, "invalid_type", ch.Type)
		return fmt.Errorf("invalid type %q for channel %q", ch.Type, ch.Name)
	}

	dest, err := loader.Load(&ch)
	if err != nil {
		lgr.Error("invalid_channel_config", "err", err)
		return err
	}
	lgr = lgr.New("dest", dest)

	var body interface{} = prep.payload
	if prep.filter != nil {
		body, err = prep.filter.Apply(prep.payload.Native())
		if err != nil {
			lgr.Error("apply_filter_err", "err", err)
			return err
		}
	}

	err = dest.Send(body)
	if err != nil {
		lgr.Error("send_err", "err", err, "type", dest.Type())
		return err
	}

	lgr.Info("message_sent", "type", dest.Type())
	return nil
}
