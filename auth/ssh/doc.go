// Package ssh locates and validates the SSH credentials used for git
// repository access.
//
// It discovers keys in the user's SSH directory, checks whether a key is
// loaded in the running ssh-agent, and builds the GIT_SSH_COMMAND
// environment for git subprocesses so fetches use a specific key.
//
// # Picking a key
//
//	info, err := ssh.FindDefaultKey()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	env := ssh.GitEnv(info.PrivateKeyPath)
//
// # Custom configuration
//
//	cfg := ssh.Config{
//	    SSHDir:        "/etc/build/keys",
//	    PreferredKeys: []string{"deploy_ed25519.pub"},
//	}
//	info, err := ssh.FindDefaultKeyWithConfig(cfg)
package ssh
