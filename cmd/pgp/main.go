// Command pgp is a small front end over the openpgp packet engine: it
// generates keys, signs and verifies files, and encrypts and decrypts
// messages, all as raw binary packet streams.
package main

import (
	"bufio"
	"io"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
	"nullprogram.com/x/optparse"

	"nullprogram.com/x/openpgp"
	"nullprogram.com/x/openpgp/packet"
)

const (
	cmdKeygen = iota
	cmdSign
	cmdVerify
	cmdEncrypt
	cmdDecrypt
)

var log = logrus.New()

// Print the message like log.Errorf() and then os.Exit(1).
func fatal(format string, args ...interface{}) {
	log.Errorf(format, args...)
	os.Exit(1)
}

// Returns the first line of a file not including \r or \n. Does not
// require a newline and does not return io.EOF.
func firstLine(filename string) ([]byte, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	s := bufio.NewScanner(f)
	if !s.Scan() {
		if err := s.Err(); err != io.EOF && err != nil {
			return nil, err
		}
		return nil, nil // empty files are ok
	}
	return append([]byte(nil), s.Bytes()...), nil
}

type config struct {
	cmd  int
	args []string

	uid      string
	keyFile  string
	sigFile  string
	passFile string
	output   string
	rsa      bool
	rsaBits  int
	verbose  bool
}

func usage(w io.Writer) {
	bw := bufio.NewWriter(w)
	i := "  "
	b := "      "
	p := "pgp"
	f := func(s ...interface{}) {
		for _, v := range s {
			bw.WriteString(v.(string))
			bw.WriteByte(' ')
		}
		bw.WriteByte('\n')
	}
	f("Usage:")
	f(i, p, "-K -u id [-R] [-b bits] [-o key.pgp]")
	f(b, "-S -k key.pgp [-i pwfile] [-o doc.sig] doc")
	f(b, "-V -k key.pgp -s doc.sig doc")
	f(b, "-E -k key.pgp [-o doc.pgp] doc")
	f(b, "-D -k key.pgp [-i pwfile] [-o doc] doc.pgp")
	f("Commands:")
	f(i, "-K, --keygen           generate a fresh key pair")
	f(i, "-S, --sign             output a detached signature")
	f(i, "-V, --verify           verify a detached signature")
	f(i, "-E, --encrypt          encrypt a file to a public key")
	f(i, "-D, --decrypt          decrypt a file")
	f("Options:")
	f(i, "-b, --bits N           RSA modulus size [2048]")
	f(i, "-i, --input FILE       read passphrase from file")
	f(i, "-k, --key FILE         key file (binary packets)")
	f(i, "-o, --output FILE      output file [stdout]")
	f(i, "-R, --rsa              generate RSA instead of Ed25519")
	f(i, "-s, --signature FILE   detached signature to verify")
	f(i, "-u, --uid USERID       user ID for the generated key")
	f(i, "-v, --verbose          print additional information")
	bw.Flush()
}

func parse() *config {
	conf := config{
		cmd:     cmdKeygen,
		rsaBits: 2048,
	}

	options := []optparse.Option{
		{Long: "keygen", Short: 'K', Kind: optparse.KindNone},
		{Long: "sign", Short: 'S', Kind: optparse.KindNone},
		{Long: "verify", Short: 'V', Kind: optparse.KindNone},
		{Long: "encrypt", Short: 'E', Kind: optparse.KindNone},
		{Long: "decrypt", Short: 'D', Kind: optparse.KindNone},

		{Long: "bits", Short: 'b', Kind: optparse.KindRequired},
		{Long: "help", Short: 'h', Kind: optparse.KindNone},
		{Long: "input", Short: 'i', Kind: optparse.KindRequired},
		{Long: "key", Short: 'k', Kind: optparse.KindRequired},
		{Long: "output", Short: 'o', Kind: optparse.KindRequired},
		{Long: "rsa", Short: 'R', Kind: optparse.KindNone},
		{Long: "signature", Short: 's', Kind: optparse.KindRequired},
		{Long: "uid", Short: 'u', Kind: optparse.KindRequired},
		{Long: "verbose", Short: 'v', Kind: optparse.KindNone},
	}

	results, rest, err := optparse.Parse(options, os.Args)
	if err != nil {
		usage(os.Stderr)
		fatal("%s", err)
	}
	for _, result := range results {
		switch result.Long {
		case "keygen":
			conf.cmd = cmdKeygen
		case "sign":
			conf.cmd = cmdSign
		case "verify":
			conf.cmd = cmdVerify
		case "encrypt":
			conf.cmd = cmdEncrypt
		case "decrypt":
			conf.cmd = cmdDecrypt

		case "bits":
			bits, err := strconv.Atoi(result.Optarg)
			if err != nil {
				fatal("--bits (-b): %s", err)
			}
			conf.rsaBits = bits
		case "help":
			usage(os.Stdout)
			os.Exit(0)
		case "input":
			conf.passFile = result.Optarg
		case "key":
			conf.keyFile = result.Optarg
		case "output":
			conf.output = result.Optarg
		case "rsa":
			conf.rsa = true
		case "signature":
			conf.sigFile = result.Optarg
		case "uid":
			conf.uid = result.Optarg
		case "verbose":
			conf.verbose = true
		}
	}

	conf.args = rest
	return &conf
}

func outputFile(conf *config) (io.WriteCloser, error) {
	if conf.output == "" {
		return os.Stdout, nil
	}
	return os.Create(conf.output)
}

func loadKeyRing(conf *config) openpgp.EntityList {
	if conf.keyFile == "" {
		fatal("--key (-k) required")
	}
	f, err := os.Open(conf.keyFile)
	if err != nil {
		fatal("%s", err)
	}
	defer f.Close()
	el, err := openpgp.ReadKeyRing(f)
	if err != nil {
		fatal("%s: %s", conf.keyFile, err)
	}
	for _, e := range el {
		log.Debugf("loaded key %X", e.PrimaryKey.Fingerprint)
	}
	return el
}

func maybeDecryptKeys(el openpgp.EntityList, conf *config) {
	if conf.passFile == "" {
		return
	}
	passphrase, err := firstLine(conf.passFile)
	if err != nil {
		fatal("%s", err)
	}
	for _, e := range el {
		if e.PrivateKey != nil && e.PrivateKey.Encrypted {
			if err := e.PrivateKey.Decrypt(passphrase); err != nil {
				fatal("decrypting key: %s", err)
			}
		}
		for i := range e.Subkeys {
			sk := &e.Subkeys[i]
			if sk.PrivateKey != nil && sk.PrivateKey.Encrypted {
				if err := sk.PrivateKey.Decrypt(passphrase); err != nil {
					fatal("decrypting subkey: %s", err)
				}
			}
		}
	}
}

func main() {
	conf := parse()
	if conf.verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	switch conf.cmd {
	case cmdKeygen:
		if conf.uid == "" {
			fatal("--uid (-u) required")
		}
		var entity *openpgp.Entity
		var err error
		if conf.rsa {
			entity, err = openpgp.NewEntity(conf.uid, "", "", &packet.Config{RSABits: conf.rsaBits})
		} else {
			entity, err = openpgp.NewEd25519Entity(conf.uid, "", "", nil)
		}
		if err != nil {
			fatal("%s", err)
		}
		out, err := outputFile(conf)
		if err != nil {
			fatal("%s", err)
		}
		if err := entity.SerializePrivateWithoutSigning(out); err != nil {
			fatal("%s", err)
		}
		if err := out.Close(); err != nil {
			fatal("%s", err)
		}
		log.Debugf("generated key %X", entity.PrimaryKey.Fingerprint)

	case cmdSign:
		if len(conf.args) != 1 {
			fatal("exactly one input file required")
		}
		el := loadKeyRing(conf)
		maybeDecryptKeys(el, conf)
		in, err := os.Open(conf.args[0])
		if err != nil {
			fatal("%s", err)
		}
		defer in.Close()
		out, err := outputFile(conf)
		if err != nil {
			fatal("%s", err)
		}
		if err := openpgp.DetachSign(out, el[0], in, nil); err != nil {
			fatal("%s", err)
		}
		if err := out.Close(); err != nil {
			fatal("%s", err)
		}

	case cmdVerify:
		if len(conf.args) != 1 || conf.sigFile == "" {
			fatal("an input file and --signature (-s) are required")
		}
		el := loadKeyRing(conf)
		signed, err := os.Open(conf.args[0])
		if err != nil {
			fatal("%s", err)
		}
		defer signed.Close()
		sig, err := os.Open(conf.sigFile)
		if err != nil {
			fatal("%s", err)
		}
		defer sig.Close()
		signer, err := openpgp.CheckDetachedSignature(el, signed, sig, nil)
		if err != nil {
			fatal("bad signature: %s", err)
		}
		log.Infof("good signature from %X", signer.PrimaryKey.Fingerprint)

	case cmdEncrypt:
		if len(conf.args) != 1 {
			fatal("exactly one input file required")
		}
		el := loadKeyRing(conf)
		in, err := os.Open(conf.args[0])
		if err != nil {
			fatal("%s", err)
		}
		defer in.Close()
		out, err := outputFile(conf)
		if err != nil {
			fatal("%s", err)
		}
		plaintext, err := openpgp.Encrypt(out, el, nil, &openpgp.FileHints{IsBinary: true}, nil)
		if err != nil {
			fatal("%s", err)
		}
		if _, err := io.Copy(plaintext, in); err != nil {
			fatal("%s", err)
		}
		if err := plaintext.Close(); err != nil {
			fatal("%s", err)
		}
		if err := out.Close(); err != nil {
			fatal("%s", err)
		}

	case cmdDecrypt:
		if len(conf.args) != 1 {
			fatal("exactly one input file required")
		}
		el := loadKeyRing(conf)
		maybeDecryptKeys(el, conf)
		in, err := os.Open(conf.args[0])
		if err != nil {
			fatal("%s", err)
		}
		defer in.Close()
		md, err := openpgp.ReadMessage(in, el, nil, nil)
		if err != nil {
			fatal("%s", err)
		}
		out, err := outputFile(conf)
		if err != nil {
			fatal("%s", err)
		}
		if _, err := io.Copy(out, md.UnverifiedBody); err != nil {
			fatal("%s", err)
		}
		if err := out.Close(); err != nil {
			fatal("%s", err)
		}
		if md.IsSigned && md.SignatureError != nil {
			fatal("signature invalid: %s", md.SignatureError)
		}
	}
}
