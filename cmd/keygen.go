package cmd

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/cqroot/prompt"
	"github.com/urfave/cli/v2"
)

const keyAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

func keygenCmd() *cli.Command {
	return &cli.Command{
		Name:  "keygen",
		Usage: "Generate a random API key",
		Description: `Generates a random alphanumeric key suitable for the
API_KEY credential and prints it to stdout.`,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "length",
				Aliases: []string{"l"},
				Value:   32,
				Usage:   "Length of the generated key",
			},
			&cli.StringFlag{
				Name:    "prefix",
				Aliases: []string{"p"},
				Usage:   "Optional prefix for the key",
			},
			&cli.BoolFlag{
				Name:    "interactive",
				Aliases: []string{"i"},
				Usage:   "Ask for the prefix interactively",
			},
		},
		Action: func(ctx *cli.Context) error {
			prefix := ctx.String("prefix")

			if ctx.Bool("interactive") {
				answer, err := prompt.New().Ask("Prefix:").Input("")
				if err != nil {
					return err
				}
				prefix = answer
			}

			key, err := generateKey(ctx.Int("length"))
			if err != nil {
				return fmt.Errorf("generating key: %w", err)
			}

			fmt.Println(prefix + key)
			return nil
		},
	}
}

func generateKey(length int) (string, error) {
	key := make([]byte, length)
	for i := range key {
		index, err := rand.Int(rand.Reader, big.NewInt(int64(len(keyAlphabet))))
		if err != nil {
			return "", err
		}
		key[i] = keyAlphabet[index.Int64()]
	}
	return string(key), nil
}
