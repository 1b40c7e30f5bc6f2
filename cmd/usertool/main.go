// usertool creates and maintains user records for the cookiegate server.
//
// Usage:
//
//	usertool -d <dsn> -op add -u alice -r Admin [-g]
//	usertool -d <dsn> -op passwd -u alice
package main

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/term"

	"github.com/avolkovs/cookiegate/internal/common"
	"github.com/avolkovs/cookiegate/internal/dbx"
	"github.com/avolkovs/cookiegate/internal/server/credential"
	"github.com/avolkovs/cookiegate/internal/server/models"
	"github.com/avolkovs/cookiegate/internal/server/repositories/users"
)

func main() {

	dsn := flag.String("d", "", "database DSN")
	op := flag.String("op", "add", "operation: add or passwd")
	username := flag.String("u", "", "username")
	role := flag.String("r", "User", "role for new users")
	generate := flag.Bool("g", false, "generate a random password instead of prompting")
	flag.Parse()

	if *dsn == "" || *username == "" {
		fmt.Println("usage: usertool -d <dsn> -op add|passwd -u <username> [-r <role>] [-g]")
		os.Exit(2)
	}

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		fmt.Println(err.Error())
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()

	password, err := obtainPassword(*generate)
	if err != nil {
		fmt.Println(err.Error())
		os.Exit(1)
	}

	salt, err := credential.NewSalt()
	if err != nil {
		common.WipeByteArray(password)
		fmt.Println(err.Error())
		os.Exit(1)
	}
	digest, err := credential.Hash(string(password), salt)
	common.WipeByteArray(password)
	if err != nil {
		fmt.Println(err.Error())
		os.Exit(1)
	}

	switch *op {
	case "add":
		repo := users.NewPostgresRepository(db)
		user, err := repo.Create(ctx, &models.User{
			Username:     *username,
			Role:         *role,
			Salt:         salt,
			PasswordHash: digest,
		})
		if err != nil {
			if errors.Is(err, common.ErrAlreadyExists) {
				fmt.Printf("user %q already exists\n", *username)
				os.Exit(1)
			}
			fmt.Println(err.Error())
			os.Exit(1)
		}
		fmt.Printf("created user %s (id=%s, role=%s)\n", user.Username, user.ID, user.Role)

	case "passwd":
		// salt and digest swap together or not at all
		err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			return users.NewPostgresRepository(tx).UpdatePassword(ctx, *username, salt, digest)
		})
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				fmt.Printf("no such user %q\n", *username)
				os.Exit(1)
			}
			fmt.Println(err.Error())
			os.Exit(1)
		}
		fmt.Printf("password updated for %s\n", *username)

	default:
		fmt.Printf("unknown operation %q\n", *op)
		os.Exit(2)
	}
}

func obtainPassword(generate bool) ([]byte, error) {
	if generate {
		s, err := common.MakeRandHexString(12)
		if err != nil {
			return nil, err
		}
		fmt.Println("generated password:", s)
		return []byte(s), nil
	}

	fmt.Println("Enter password")
	first, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return nil, err
	}

	fmt.Println("Repeat password")
	second, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		common.WipeByteArray(first)
		return nil, err
	}

	if !bytes.Equal(first, second) {
		common.WipeByteArray(first)
		common.WipeByteArray(second)
		return nil, errors.New("passwords do not match")
	}

	common.WipeByteArray(second)
	return first, nil
}
