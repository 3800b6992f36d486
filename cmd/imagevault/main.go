/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"imagevault/internal/analyzer"
	"imagevault/internal/config"
	"imagevault/internal/crash"
	"imagevault/internal/domain"
	applog "imagevault/internal/log"
	"imagevault/internal/snapshot"
	"imagevault/internal/store"
	"imagevault/internal/thumbnail"
	"imagevault/internal/version"
)

func usage() {
	fmt.Println("ImageVault — local image store with analysis")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  imagevault version|-v|--version                Show version")
	fmt.Println("  imagevault folders                             List folders")
	fmt.Println("  imagevault create-folder <name> [description]  Create a folder")
	fmt.Println("  imagevault delete-folder <id>                  Delete a folder with its images and results")
	fmt.Println("  imagevault images <folderID>                   List images in a folder")
	fmt.Println("  imagevault add-image <folderID> <file>...      Add image files to a folder")
	fmt.Println("  imagevault delete-image <id>                   Delete one image and its result")
	fmt.Println("  imagevault process <imageID>                   Send an image to the analysis service")
	fmt.Println("  imagevault result <imageID>                    Show a stored analysis result")
	fmt.Println("  imagevault stats                               Show store-wide counts")
	fmt.Println("  imagevault search <query>                      Search image names across folders")
	fmt.Println("  imagevault export <file>                       Export everything to a backup file")
	fmt.Println("  imagevault import <file>                       Replace everything with a backup file")
	fmt.Println("  imagevault clear                               Delete all folders, images and results")
}

func main() {
	cfg, apiKey, _ := config.Load()
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	l := applog.WithComponent("cli")
	var st *store.Store
	defer func() { crash.Recover(st) }()

	args := os.Args
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) < 2 {
		usage()
		return
	}

	if args[1] == "version" || args[1] == "--version" || args[1] == "-v" {
		fmt.Println("ImageVault — local image store with analysis")
		fmt.Println(version.String())
		return
	}

	st = openStore(cfg, l)
	defer func() { _ = st.Close() }()
	ctx := context.Background()

	switch args[1] {
	case "folders":
		runListFolders(ctx, st)
	case "create-folder":
		if len(args) < 3 {
			fail("create-folder requires <name>")
		}
		desc := ""
		if len(args) > 3 {
			desc = args[3]
		}
		runCreateFolder(ctx, st, args[2], desc)
	case "delete-folder":
		runDeleteFolder(ctx, st, parseID(args, 2, "delete-folder requires <id>"))
	case "images":
		runListImages(ctx, st, parseID(args, 2, "images requires <folderID>"))
	case "add-image":
		if len(args) < 4 {
			fail("add-image requires <folderID> and at least one <file>")
		}
		id, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil {
			fail("invalid folder id: " + args[2])
		}
		runAddImages(ctx, st, id, args[3:])
	case "delete-image":
		runDeleteImage(ctx, st, parseID(args, 2, "delete-image requires <id>"))
	case "process":
		runProcess(ctx, st, cfg, apiKey, parseID(args, 2, "process requires <imageID>"))
	case "result":
		runShowResult(ctx, st, parseID(args, 2, "result requires <imageID>"))
	case "stats":
		runStats(ctx, st)
	case "search":
		if len(args) < 3 {
			fail("search requires <query>")
		}
		runSearch(ctx, st, args[2])
	case "export":
		if len(args) < 3 {
			fail("export requires <file>")
		}
		runExport(ctx, st, cfg, args[2])
	case "import":
		if len(args) < 3 {
			fail("import requires <file>")
		}
		runImport(ctx, st, cfg, args[2])
	case "clear":
		runClear(ctx, st)
	default:
		usage()
		os.Exit(2)
	}
}

func fail(msg string) {
	fmt.Println(msg)
	usage()
	os.Exit(2)
}

func parseID(args []string, pos int, msg string) int64 {
	if len(args) <= pos {
		fail(msg)
	}
	id, err := strconv.ParseInt(args[pos], 10, 64)
	if err != nil {
		fail("invalid id: " + args[pos])
	}
	return id
}

func openStore(cfg config.AppConfig, l *slog.Logger) *store.Store {
	path := cfg.Storage.Path
	if path == "" {
		var err error
		path, err = config.DefaultStorePath()
		if err != nil {
			l.Error("resolve store path failed", slog.Any("err", err))
			fmt.Println("Error:", err)
			os.Exit(1)
		}
		_ = os.MkdirAll(filepath.Dir(path), 0o755)
	}
	st, err := store.Open(path)
	if err != nil {
		l.Error("open store failed", slog.Any("err", err))
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	return st
}

func runListFolders(ctx context.Context, st *store.Store) {
	folders, err := st.ListFolders(ctx)
	if err != nil {
		fatal(err)
	}
	for _, f := range folders {
		fmt.Printf("%d\t%s\t%d images\t%s\n", f.ID, f.Name, f.ImageCount, f.Color)
	}
	fmt.Printf("%d folder(s)\n", len(folders))
}

func runCreateFolder(ctx context.Context, st *store.Store, name, desc string) {
	f, err := st.CreateFolder(ctx, name, desc)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("Created folder %d: %s (%s)\n", f.ID, f.Name, f.Color)
}

func runDeleteFolder(ctx context.Context, st *store.Store, id int64) {
	if err := st.DeleteFolder(ctx, id); err != nil {
		fatal(err)
	}
	fmt.Println("Deleted folder", id, "with its images and results.")
}

func runListImages(ctx context.Context, st *store.Store, folderID int64) {
	images, err := st.ListImagesByFolder(ctx, folderID)
	if err != nil {
		fatal(err)
	}
	for _, img := range images {
		state := "unprocessed"
		if img.Processed {
			state = "processed"
		}
		fmt.Printf("%d\t%s\t%d bytes\t%s\n", img.ID, img.Name, img.Size, state)
	}
	fmt.Printf("%d image(s)\n", len(images))
}

func runAddImages(ctx context.Context, st *store.Store, folderID int64, files []string) {
	l := applog.WithComponent("cli")
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			fatal(err)
		}
		mimeType := mime.TypeByExtension(filepath.Ext(path))
		if mimeType == "" {
			mimeType = http.DetectContentType(data)
		}
		thumb, err := thumbnail.Generate(data, thumbnail.DefaultMaxDim)
		if err != nil {
			l.Warn("thumbnail skipped", slog.String("file", path), slog.Any("err", err))
			thumb = ""
		}
		name := filepath.Base(path)
		img, err := st.AddImage(ctx, folderID, name, domain.FileUpload{Name: name, MimeType: mimeType, Data: data}, thumb)
		if err != nil {
			fatal(err)
		}
		fmt.Printf("Added image %d: %s (%d bytes)\n", img.ID, img.Name, img.Size)
	}
}

func runDeleteImage(ctx context.Context, st *store.Store, id int64) {
	folderID, err := st.DeleteImage(ctx, id)
	if err != nil {
		fatal(err)
	}
	if err := st.AdjustFolderImageCount(ctx, folderID, -1); err != nil {
		fatal(err)
	}
	fmt.Println("Deleted image", id)
}

func runProcess(ctx context.Context, st *store.Store, cfg config.AppConfig, apiKey string, imageID int64) {
	img, err := st.GetImage(ctx, imageID)
	if err != nil {
		fatal(err)
	}
	client := analyzer.NewClient(cfg.Analyzer.BaseURL, cfg.Analyzer.EffectiveTimeout())
	client.APIKey = apiKey
	data, err := client.Analyze(ctx, domain.FileUpload{Name: img.OriginalName, MimeType: img.MimeType, Data: img.Data})
	if err != nil {
		fatal(err)
	}
	if cfg.General.SaveResultsLocally {
		if _, err := st.SaveResult(ctx, img.ID, img.FolderID, data); err != nil {
			fatal(err)
		}
		fmt.Println("Saved analysis result for image", img.ID)
	}
	printSlides(data)
}

func runShowResult(ctx context.Context, st *store.Store, imageID int64) {
	res, err := st.GetResultByImage(ctx, imageID)
	if err != nil {
		fatal(err)
	}
	if res == nil {
		fmt.Println("No result stored for image", imageID)
		return
	}
	printSlides(res.Data)
}

func printSlides(data domain.ResultData) {
	for _, s := range data.Slides() {
		fmt.Printf("%s\t%s\t%s\n", s.Section, s.QuestionNumber, s.Answer)
	}
}

func runStats(ctx context.Context, st *store.Store) {
	stats, err := st.ComputeStats(ctx)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("Folders:     %d\n", stats.TotalFolders)
	fmt.Printf("Images:      %d\n", stats.TotalImages)
	fmt.Printf("Processed:   %d\n", stats.ProcessedImages)
	fmt.Printf("Unprocessed: %d\n", stats.UnprocessedImages)
}

func runSearch(ctx context.Context, st *store.Store, query string) {
	groups, err := st.SearchImages(ctx, query)
	if err != nil {
		fatal(err)
	}
	for _, g := range groups {
		fmt.Printf("%s:\n", g.Folder.Name)
		for _, img := range g.Images {
			fmt.Printf("  %d\t%s\n", img.ID, img.Name)
		}
	}
	if len(groups) == 0 {
		fmt.Println("No matches.")
	}
}

func runExport(ctx context.Context, st *store.Store, cfg config.AppConfig, path string) {
	snap, err := snapshot.NewEngine(st).Export(ctx)
	if err != nil {
		fatal(err)
	}
	if err := snapshot.WriteBackupFile(path, snapshot.NewBackupFile(snap, cfg.SettingsMap())); err != nil {
		fatal(err)
	}
	fmt.Println("Exported store to", path)
}

func runImport(ctx context.Context, st *store.Store, cfg config.AppConfig, path string) {
	bf, err := snapshot.ReadBackupFile(path)
	if err != nil {
		fatal(err)
	}
	if len(bf.Settings) > 0 {
		config.ApplySettings(&cfg, bf.Settings)
		if err := config.Save(cfg, ""); err != nil {
			fatal(err)
		}
		fmt.Println("Applied settings from backup.")
	}
	if bf.Store == nil {
		fmt.Println("Backup carries no store data; storage unchanged.")
		return
	}
	if err := snapshot.NewEngine(st).Import(ctx, *bf.Store); err != nil {
		fatal(err)
	}
	fmt.Printf("Imported %d folder(s). Existing data was replaced.\n", len(bf.Store.Folders))
}

func runClear(ctx context.Context, st *store.Store) {
	if err := st.ClearAll(ctx); err != nil {
		fatal(err)
	}
	fmt.Println("Cleared all folders, images and results.")
}

func fatal(err error) {
	applog.WithComponent("cli").Error("command failed", slog.Any("err", err))
	fmt.Println("Error:", err)
	os.Exit(1)
}
