// Package ytdlp wraps the yt-dlp CLI for fetching lecture audio from URLs
// listed in a table file.
package ytdlp
