package app

// Command はepiscoutの起動モード。
type Command string

const (
	// CommandServe はスキャン・トリアージ・集計APIを提供するHTTPサーバーとして起動する。
	CommandServe Command = "serve"
	// CommandWorker はSCAN_SCHEDULEに従って定期スキャンを実行するワーカーとして起動する。
	CommandWorker Command = "worker"
	// CommandMigrate は記事・キーワード・ホワイトリストのスキーマを最新化して終了する。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck は起動中のAPIサーバーの/healthを確認して終了する。
	// シェルを持たないdistrolessイメージのHEALTHCHECKから呼ばれる。
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand はos.Args[1:]の先頭要素からサブコマンドを決定する。
// 引数なし、または未知のサブコマンドはserveとして扱う。2番目以降の引数は参照しない。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}

	switch Command(args[0]) {
	case CommandWorker, CommandMigrate, CommandHealthcheck:
		return Command(args[0])
	default:
		return CommandServe
	}
}
