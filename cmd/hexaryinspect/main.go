// Command hexaryinspect is a small demonstration collaborator for the
// hexary repair engine: it imports a directory of raw proof-node blobs into
// a RepairDB and reports the dangling edges found from a given root.
package main

import (
	"encoding/hex"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"

	"github.com/ethereum/go-ethereum/ethdb/leveldb"
	"github.com/ethereum/go-ethereum/log"
	"gopkg.in/urfave/cli.v1"

	"github.com/status-im/nimbus-eth1-sub001/hexary"
	"github.com/status-im/nimbus-eth1-sub001/hexarydb"
)

var (
	dataDirFlag = cli.StringFlag{
		Name:  "datadir",
		Usage: "Directory of raw proof-node blob files to import, one file per node",
	}
	rootFlag = cli.StringFlag{
		Name:  "root",
		Usage: "Declared state root, as a hex string, to inspect from",
	}
	depthFlag = cli.IntFlag{
		Name:  "depth",
		Usage: "Maximum inspection depth",
		Value: 32,
	}
	dbFlag = cli.StringFlag{
		Name:  "leveldb",
		Usage: "Path to a goleveldb directory to persist imported nodes into",
	}
	subspaceFlag = cli.IntFlag{
		Name:  "subspace",
		Usage: "hexarydb subspace prefix to persist under (0=accounts, 1=storageSlots, ...)",
		Value: int(hexarydb.SubspaceAccounts),
	}
)

func main() {
	app := cli.NewApp()
	app.Name = "hexaryinspect"
	app.Usage = "Import and inspect a hexary trie repair batch"
	app.Commands = []cli.Command{importCommand, inspectCommand}
	if err := app.Run(os.Args); err != nil {
		log.Error("hexaryinspect failed", "err", err)
		os.Exit(1)
	}
}

var importCommand = cli.Command{
	Name:   "import",
	Usage:  "Import every blob under --datadir, report per-node outcomes and the unreferenced (candidate root) handles",
	Flags:  []cli.Flag{dataDirFlag},
	Action: runImport,
}

var inspectCommand = cli.Command{
	Name:   "inspect",
	Usage:  "Import blobs, then run the Inspector from --root and print dangling edges",
	Flags:  []cli.Flag{dataDirFlag, rootFlag, depthFlag, dbFlag, subspaceFlag},
	Action: runInspect,
}

func runImport(ctx *cli.Context) error {
	blobs, err := readBlobs(ctx.String(dataDirFlag.Name))
	if err != nil {
		return err
	}
	db := hexary.NewRepairDB()
	im := hexary.NewImporter(db)
	for slot, blob := range blobs {
		report := im.ImportNode(slot, blob)
		if report.Err != nil {
			log.Warn("import failed", "slot", slot, "err", report.Err)
			continue
		}
		log.Info("imported node", "slot", slot, "kind", report.Kind)
	}
	for _, h := range im.Unreferenced() {
		fmt.Println("unreferenced (candidate root):", h.String())
	}
	return nil
}

func runInspect(ctx *cli.Context) error {
	blobs, err := readBlobs(ctx.String(dataDirFlag.Name))
	if err != nil {
		return err
	}
	db := hexary.NewRepairDB()
	im := hexary.NewImporter(db)
	for slot, blob := range blobs {
		if report := im.ImportNode(slot, blob); report.Err != nil {
			return fmt.Errorf("importing slot %d: %w", slot, report.Err)
		}
	}

	rootHex := ctx.String(rootFlag.Name)
	if rootHex == "" {
		return fmt.Errorf("hexaryinspect: --root is required")
	}
	rootBytes, err := hex.DecodeString(trimHexPrefix(rootHex))
	if err != nil {
		return fmt.Errorf("hexaryinspect: decoding --root: %w", err)
	}
	var key hexary.NodeKey
	copy(key[:], rootBytes)
	rootHandle := hexary.HandleFromKey(key)

	report := hexary.Inspect(db, rootHandle, nil, ctx.Int(depthFlag.Name))
	for _, d := range report.Dangling {
		fmt.Printf("dangling: trail=%x handle=%s\n", []byte(d.RawTrail), d.Handle.String())
	}
	log.Info("inspect complete", "dangling", len(report.Dangling), "stopped", report.Stopped, "maxDepth", report.MaxDepth)

	if dbPath := ctx.String(dbFlag.Name); dbPath != "" {
		if err := persistSnapshot(db, dbPath, hexarydb.Subspace(ctx.Int(subspaceFlag.Name))); err != nil {
			return err
		}
	}
	return nil
}

func persistSnapshot(db *hexary.RepairDB, dbPath string, space hexarydb.Subspace) error {
	store, err := leveldb.New(dbPath, 0, 0, "hexaryinspect", false)
	if err != nil {
		return fmt.Errorf("hexaryinspect: opening %s: %w", dbPath, err)
	}
	defer store.Close()

	persister := hexarydb.NewPersister(store)
	count, err := persister.PersistNodes(space, db.Snapshot())
	if err != nil {
		return fmt.Errorf("hexaryinspect: persisting nodes: %w", err)
	}
	log.Info("persisted nodes", "count", count, "path", dbPath)
	return nil
}

func readBlobs(dir string) ([][]byte, error) {
	entries, err := ioutil.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("hexaryinspect: reading %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	blobs := make([][]byte, 0, len(names))
	for _, name := range names {
		blob, err := ioutil.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("hexaryinspect: reading %s: %w", name, err)
		}
		blobs = append(blobs, blob)
	}
	return blobs, nil
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
